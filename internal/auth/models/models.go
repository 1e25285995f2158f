package models

import (
	"time"

	id "climatecentre/pkg/domain"
)

// User is the identity tracked by the auth provider. Storage lives behind the
// UserStore interface.
type User struct {
	ID           id.UserID
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session models one signed-in device. The bearer token handed to clients
// wraps the session ID; everything else stays server side.
type Session struct {
	ID        id.SessionID
	UserID    id.UserID
	Email     string
	Device    string
	IPAddress string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	if s == nil {
		return false
	}
	if s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// SignOutScope selects how far a sign-out reaches.
type SignOutScope string

const (
	// ScopeLocal revokes only the calling session.
	ScopeLocal SignOutScope = "local"
	// ScopeGlobal revokes every session belonging to the user.
	ScopeGlobal SignOutScope = "global"
)

// EventType labels a session-change notification.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is delivered to session-change subscribers. Session is nil for
// sign-out events that cleared every session of a user.
type Event struct {
	Type    EventType
	UserID  id.UserID
	Session *Session
}
