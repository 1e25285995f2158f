// Package session tracks the signed-in user of a client, keeps the
// admin flag in sync with the backend, and gates access to the admin
// surface. The Manager owns the mutable state; the Guard decides what
// a given state is allowed to see.
package session

import (
	"context"
	"time"

	"climatecentre/pkg/domain"
)

// User is the authenticated identity attached to a session.
type User struct {
	ID    domain.UserID
	Email string
}

// Session is a live sign-in: the bearer token plus the user it belongs to.
type Session struct {
	Token     string
	User      User
	ExpiresAt time.Time
}

// State is a snapshot of what the Manager currently knows. Loading is
// true from construction until the first session fetch resolves, so
// consumers can tell "no user" apart from "don't know yet".
type State struct {
	User    *User
	Session *Session
	IsAdmin bool
	Loading bool
}

// Provider is the authentication backend the Manager drives. Subscribe
// must deliver every later session change to fn, including changes the
// Manager itself triggers; the returned func cancels the subscription.
type Provider interface {
	Subscribe(fn func(*Session)) (func(), error)
	CurrentSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, global bool) error
	ClearLocalState()
}

// AdminChecker answers whether a user may use the admin surface. Any
// error is treated as "not an admin".
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID domain.UserID) (bool, error)
}
