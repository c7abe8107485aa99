// Package events provides the event system that fans consensus progress
// out to the CLI and Web UI surfaces.
package events

import (
	"strconv"
	"sync"
	"time"
)

// UIEvent represents an event that can be forwarded between CLI and Web UI
type UIEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Common event types
const (
	EventTypeSessionStarted   = "session_started"
	EventTypeSessionMessage   = "session_message"
	EventTypePhaseChanged     = "phase_changed"
	EventTypeSessionCompleted = "session_completed"
	EventTypeSessionFailed    = "session_failed"
	EventTypeFileChanged      = "file_changed"
	EventTypeError            = "error"
)

// EventBus manages event distribution between the engine and its subscribers
type EventBus struct {
	subscribers map[string]chan UIEvent
	mutex       sync.RWMutex
	nextID      int64
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan UIEvent),
	}
}

// Subscribe adds a new subscriber to the event bus
func (eb *EventBus) Subscribe(name string) <-chan UIEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	ch := make(chan UIEvent, 100) // Buffered channel
	eb.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber from the event bus
func (eb *EventBus) Unsubscribe(name string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if ch, exists := eb.subscribers[name]; exists {
		delete(eb.subscribers, name)
		close(ch)
	}
}

// Publish broadcasts an event to all subscribers
func (eb *EventBus) Publish(eventType string, data any) {
	eb.mutex.Lock()
	eb.nextID++
	event := UIEvent{
		ID:        generateEventID(eb.nextID),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	subscribers := make([]chan UIEvent, 0, len(eb.subscribers))
	for _, ch := range eb.subscribers {
		subscribers = append(subscribers, ch)
	}
	eb.mutex.Unlock()

	// Publish to all subscribers without holding the lock
	for _, ch := range subscribers {
		select {
		case ch <- event:
		default:
			// Channel is full, skip this subscriber
			// This prevents blocking if a subscriber is slow
		}
	}
}

// generateEventID creates a unique event ID
func generateEventID(id int64) string {
	return time.Now().Format("20060102-150405") + "-" + strconv.FormatInt(id, 10)
}

// Helper functions for creating specific event types

// SessionStartedEvent creates a session started event
func SessionStartedEvent(sessionID, task string, models []string) map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionID,
		"task":       task,
		"models":     models,
	}
}

// SessionMessageEvent creates a transcript message event
func SessionMessageEvent(sessionID, agent, content, kind string) map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionID,
		"agent":      agent,
		"content":    content,
		"type":       kind,
	}
}

// PhaseChangedEvent creates a phase change event
func PhaseChangedEvent(sessionID, phase string) map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionID,
		"phase":      phase,
	}
}

// SessionCompletedEvent creates a session completed event
func SessionCompletedEvent(sessionID string, fileCount int, passed bool) map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionID,
		"files":      fileCount,
		"passed":     passed,
	}
}

// SessionFailedEvent creates a session failed event
func SessionFailedEvent(sessionID, phase, reason string) map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionID,
		"phase":      phase,
		"error":      reason,
	}
}

// FileChangedEvent creates a file changed event
func FileChangedEvent(sessionID, filename, action string, size int) map[string]interface{} {
	return map[string]interface{}{
		"session_id": sessionID,
		"filename":   filename,
		"action":     action, // "created" or "modified"
		"size":       size,
	}
}

// ErrorEvent creates an error event
func ErrorEvent(message string, err error) map[string]interface{} {
	return map[string]interface{}{
		"message": message,
		"error":   err.Error(),
	}
}
