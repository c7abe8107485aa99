package consensus

import "fmt"

// PhaseTransition is one directed edge in the phase machine.
type PhaseTransition struct {
	From Phase
	To   Phase
}

// allowedPhaseTransitions is the complete forward path. Phases are never
// revisited; a successful run walks planning, coding, testing, done exactly
// once each.
var allowedPhaseTransitions = map[PhaseTransition]bool{
	{PhasePlanning, PhaseCoding}: true,
	{PhaseCoding, PhaseTesting}:  true,
	{PhaseTesting, PhaseDone}:    true,
}

// StatusTransition is one directed edge in the status machine.
type StatusTransition struct {
	From Status
	To   Status
}

// allowedStatusTransitions keeps status monotonic: once a run completes or
// fails it never changes again.
var allowedStatusTransitions = map[StatusTransition]bool{
	{StatusRunning, StatusCompleted}: true,
	{StatusRunning, StatusFailed}:    true,
}

// InvalidTransitionError reports a phase or status move outside the machine.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

// CanTransitionPhase reports whether the phase move is allowed.
func CanTransitionPhase(from, to Phase) bool {
	return allowedPhaseTransitions[PhaseTransition{From: from, To: to}]
}

// ValidatePhaseTransition returns an InvalidTransitionError for moves outside
// the machine.
func ValidatePhaseTransition(from, to Phase) error {
	if !CanTransitionPhase(from, to) {
		return &InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// CanTransitionStatus reports whether the status move is allowed. Setting the
// same status again is a no-op and allowed.
func CanTransitionStatus(from, to Status) bool {
	if from == to {
		return true
	}
	return allowedStatusTransitions[StatusTransition{From: from, To: to}]
}

// ValidateStatusTransition returns an InvalidTransitionError for
// non-monotonic status moves.
func ValidateStatusTransition(from, to Status) error {
	if !CanTransitionStatus(from, to) {
		return &InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// IsTerminalStatus reports whether a run with this status is finished.
func IsTerminalStatus(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}
