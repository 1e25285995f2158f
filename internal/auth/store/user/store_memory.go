package user

import (
	"context"
	"strings"
	"sync"

	"climatecentre/internal/auth/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

// InMemoryStore keeps users in a map. It backs tests and single-node
// development deployments; production uses the Postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]models.User
	byEmail map[string]id.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create stores a new user. Returns sentinel.ErrConflict when the email is
// already taken.
func (s *InMemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeEmail(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	s.byID[user.ID] = user
	s.byEmail[key] = user.ID
	return nil
}

// FindByID returns the user or sentinel.ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.byID[userID]; ok {
		return user, nil
	}
	return models.User{}, sentinel.ErrNotFound
}

// FindByEmail returns the user or sentinel.ErrNotFound. Lookup is
// case-insensitive on the email.
func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID, ok := s.byEmail[normalizeEmail(email)]; ok {
		return s.byID[userID], nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
