package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAuthFailed is returned by Authenticate when a bearer token is
// configured and the presented token does not match.
var ErrAuthFailed = errors.New("bearer token mismatch")

// ErrNotFound is returned when a session id has no live session.
var ErrNotFound = errors.New("session not found")

// Manager is the Authenticator of spec §4.3: it decides whether an
// incoming connection is admitted and mints/tracks sessions in memory.
type Manager struct {
	authToken string // empty means accept all connections

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. An empty authToken admits every
// connecting client; a non-empty one requires an exact bearer-token match.
func NewManager(authToken string) *Manager {
	return &Manager{
		authToken: authToken,
		sessions:  make(map[string]*Session),
	}
}

// Authenticate validates the presented bearer token (ignored when no
// token is configured) and mints a new session on success.
func (m *Manager) Authenticate(presentedToken, clientID string) (*Session, error) {
	if m.authToken != "" && presentedToken != m.authToken {
		return nil, ErrAuthFailed
	}

	id, err := newSessionID()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	now := time.Now()
	sess := &Session{
		ID:             id,
		ClientID:       clientID,
		EstablishedAt:  now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// Get retrieves a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns a snapshot of every live session.
func (m *Manager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out
}

// Invalidate destroys a session, e.g. on disconnect.
func (m *Manager) Invalidate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// newSessionID produces a random, lowercase-hex, >=128-bit session id.
func newSessionID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	b := [16]byte(raw)
	return hex.EncodeToString(b[:]), nil
}
