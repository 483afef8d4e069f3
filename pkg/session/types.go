package session

import (
	"sync"
	"time"
)

// Session is an authenticated association between a client and the agent,
// identified by an opaque random session id. Sessions are destroyed on
// disconnect or explicit invalidation; they never expire on a timer.
type Session struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"clientId,omitempty"`
	EstablishedAt  time.Time `json:"establishedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`

	mu sync.RWMutex
}

// Touch updates the session's last-activity timestamp (thread-safe).
// Called on every inbound control-channel message, before it is decoded.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivityAt = time.Now()
}

// Clone returns a safe, independent copy of the session for reporting.
func (s *Session) Clone() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		ID:             s.ID,
		ClientID:       s.ClientID,
		EstablishedAt:  s.EstablishedAt,
		LastActivityAt: s.LastActivityAt,
	}
}
