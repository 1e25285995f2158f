package session

import (
	"context"
	"sync"
	"time"

	"climatecentre/internal/auth/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a map. It backs tests and single-node
// development deployments; production uses the Redis store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

// New constructs an empty in-memory session store.
func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]*models.Session)}
}

// Create stores a new session.
func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// FindByID returns the session or sentinel.ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		cp := *session
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

// Revoke marks one session revoked. Revoking an already-revoked session is a
// no-op; unknown sessions return sentinel.ErrNotFound.
func (s *InMemoryStore) Revoke(_ context.Context, sessionID id.SessionID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if session.RevokedAt == nil {
		t := now
		session.RevokedAt = &t
	}
	return nil
}

// RevokeAllForUser marks every session of the user revoked and returns how
// many were affected. A user with no sessions is not an error; global
// sign-out must succeed for already-signed-out users.
func (s *InMemoryStore) RevokeAllForUser(_ context.Context, userID id.UserID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := 0
	for _, session := range s.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			t := now
			session.RevokedAt = &t
			revoked++
		}
	}
	return revoked, nil
}
