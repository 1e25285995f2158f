// Package service implements the auth collaborator: password sign-in,
// local/global sign-out, bearer-token resolution, and a subscribable
// session-change stream.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"climatecentre/internal/auth/device"
	"climatecentre/internal/auth/metrics"
	"climatecentre/internal/auth/models"
	"climatecentre/internal/auth/token"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/middleware/metadata"
	"climatecentre/pkg/platform/sentinel"
)

// UserStore persists identities.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, userID id.UserID) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionStore persists signed-in devices.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Revoke(ctx context.Context, sessionID id.SessionID, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID id.UserID, now time.Time) (int, error)
}

// dummyHash absorbs the bcrypt cost for unknown emails so response timing does
// not reveal whether an address exists.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service is the auth collaborator implementation.
type Service struct {
	users      UserStore
	sessions   SessionStore
	signer     *token.Signer
	sessionTTL time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	subscribers map[int]func(models.Event)
	nextSub     int
}

// New constructs the auth service.
func New(users UserStore, sessions SessionStore, signer *token.Signer, sessionTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		users:       users,
		sessions:    sessions,
		signer:      signer,
		sessionTTL:  sessionTTL,
		logger:      logger,
		subscribers: make(map[int]func(models.Event)),
	}
}

// CreateUser registers an identity with a bcrypt-hashed password. Admin
// privilege is not granted here; administrator records are provisioned
// out-of-band in the content store.
func (s *Service) CreateUser(ctx context.Context, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, dErrors.Wrap(dErrors.CodeInternal, "hash password", err)
	}
	user := models.User{
		ID:           id.UserID(uuid.New()),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.User{}, dErrors.New(dErrors.CodeInvalidInput, "email already registered")
		}
		return models.User{}, dErrors.Wrap(dErrors.CodeInternal, "create user", err)
	}
	return user, nil
}

// SignInWithPassword verifies credentials and opens a session, returning the
// session and its bearer token. Bad credentials come back as a generic
// unauthorized error; which half failed is never disclosed.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			metrics.IncSignInFailure()
			return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, "", dErrors.Wrap(dErrors.CodeUnavailable, "auth store unavailable", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		metrics.IncSignInFailure()
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	now := time.Now()
	session := &models.Session{
		ID:        id.SessionID(uuid.New()),
		UserID:    user.ID,
		Email:     user.Email,
		Device:    device.ParseUserAgent(metadata.GetUserAgent(ctx)),
		IPAddress: metadata.GetClientIP(ctx),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", dErrors.Wrap(dErrors.CodeUnavailable, "session store unavailable", err)
	}

	bearer, err := s.signer.Sign(session)
	if err != nil {
		return nil, "", dErrors.Wrap(dErrors.CodeInternal, "issue session token", err)
	}

	metrics.IncSignInSuccess()
	s.logger.InfoContext(ctx, "user signed in",
		"user_id", user.ID,
		"session_id", session.ID,
		"device", session.Device,
	)
	s.publish(models.Event{Type: models.EventSignedIn, UserID: user.ID, Session: session})
	return session, bearer, nil
}

// SignOut revokes the given session (local scope) or every session of its
// user (global scope). Revoking an already-gone session is not an error so
// repeated sign-outs stay idempotent.
func (s *Service) SignOut(ctx context.Context, session *models.Session, scope models.SignOutScope) error {
	now := time.Now()
	var err error
	event := models.Event{Type: models.EventSignedOut, UserID: session.UserID}
	switch scope {
	case models.ScopeGlobal:
		_, err = s.sessions.RevokeAllForUser(ctx, session.UserID, now)
	default:
		err = s.sessions.Revoke(ctx, session.ID, now)
		if errors.Is(err, sentinel.ErrNotFound) {
			err = nil
		}
		event.Session = session
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeUnavailable, "sign-out failed", err)
	}

	metrics.IncSignOut()
	s.logger.InfoContext(ctx, "user signed out",
		"user_id", session.UserID,
		"session_id", session.ID,
		"scope", scope,
	)
	s.publish(event)
	return nil
}

// Resolve validates a bearer token and returns the active session and its
// user. Every failure mode collapses into unauthorized; callers only need to
// know the token is unusable.
func (s *Service) Resolve(ctx context.Context, bearer string) (*models.Session, *models.User, error) {
	sessionID, userID, err := s.signer.Parse(bearer)
	if err != nil {
		metrics.IncSessionResolveFailure()
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			metrics.IncSessionResolveFailure()
			return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session")
		}
		return nil, nil, dErrors.Wrap(dErrors.CodeUnavailable, "session store unavailable", err)
	}
	if session.UserID != userID || !session.Active(time.Now()) {
		metrics.IncSessionResolveFailure()
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			metrics.IncSessionResolveFailure()
			return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session")
		}
		return nil, nil, dErrors.Wrap(dErrors.CodeUnavailable, "auth store unavailable", err)
	}
	return session, &user, nil
}

// Subscribe registers a session-change callback and returns an unsubscribe
// function. Events fire after state has been persisted.
func (s *Service) Subscribe(fn func(models.Event)) func() {
	s.mu.Lock()
	sub := s.nextSub
	s.nextSub++
	s.subscribers[sub] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, sub)
		s.mu.Unlock()
	}
}

func (s *Service) publish(event models.Event) {
	s.mu.Lock()
	fns := make([]func(models.Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
