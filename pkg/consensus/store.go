package consensus

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSessionNotFound is returned by Store.Get and Store.Update for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// Store holds session snapshots for polling. The run driving a session is its
// only writer; any number of readers may Get concurrently. Implementations
// must reject status moves that violate the monotonic running to
// completed/failed contract.
type Store interface {
	Create(session *Session) error
	Get(id string) (*Session, error)
	Update(session *Session) error
}

// MemoryStore is the in-process Store. Snapshots are deep copies on both
// sides of the boundary, so a poller can never observe a half-written update
// and the writer can never be aliased.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create stores the first snapshot of a session.
func (m *MemoryStore) Create(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

// Get returns a snapshot of the session. The caller owns the copy.
func (m *MemoryStore) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Update replaces the stored snapshot. A terminal session can only be
// re-written with the same status; anything else is an invalid transition.
func (m *MemoryStore) Update(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[session.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if err := ValidateStatusTransition(current.Status, session.Status); err != nil {
		return err
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}
