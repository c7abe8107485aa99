package llm

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports a model call that exceeded its deadline. The
// orchestrator treats it as a phase failure and never retries on its own.
type TimeoutError struct {
	Model   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model %s timed out after %s", e.Model, e.Timeout)
}

// UpstreamError reports a non-success status from the completion endpoint,
// with the upstream detail preserved so callers can decide what to do.
type UpstreamError struct {
	Model      string
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model %s upstream error (status %d): %s", e.Model, e.StatusCode, e.Detail)
}

// TransportError reports a network-level failure before any HTTP status was
// received.
type TransportError struct {
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model %s transport error: %v", e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
