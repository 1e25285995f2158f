// Package provider adapts the server-side auth service to the
// session.Provider contract, for processes that embed the service
// directly instead of talking to it over HTTP.
package provider

import (
	"context"
	"log/slog"
	"sync"

	"climatecentre/internal/auth/models"
	"climatecentre/internal/session"
	dErrors "climatecentre/pkg/domain-errors"
)

// AuthService is the slice of the auth service the provider needs.
type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, string, error)
	SignOut(ctx context.Context, sess *models.Session, scope models.SignOutScope) error
	Resolve(ctx context.Context, bearer string) (*models.Session, *models.User, error)
	Subscribe(fn func(models.Event)) func()
}

// Local holds one client's bearer token in memory and translates auth
// service events into session changes. A global sign-out performed by
// any other client of the same account is observed through the service
// event feed and surfaces here as a nil session.
type Local struct {
	svc             AuthService
	logger          *slog.Logger
	stopServiceFeed func()

	mu      sync.Mutex
	token   string
	current *session.Session
	backing *models.Session
	subs    map[int]func(*session.Session)
	nextSub int
}

func NewLocal(svc AuthService, logger *slog.Logger) *Local {
	p := &Local{
		svc:    svc,
		logger: logger,
		subs:   make(map[int]func(*session.Session)),
	}
	p.stopServiceFeed = svc.Subscribe(p.onServiceEvent)
	return p
}

// Close detaches the provider from the service event feed.
func (p *Local) Close() {
	if p.stopServiceFeed != nil {
		p.stopServiceFeed()
	}
}

func (p *Local) Subscribe(fn func(*session.Session)) (func(), error) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}, nil
}

// CurrentSession validates the held token against the service. An
// unauthorized answer clears the token and reports "signed out" rather
// than an error; anything else is passed through.
func (p *Local) CurrentSession(ctx context.Context) (*session.Session, error) {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token == "" {
		return nil, nil
	}

	backing, user, err := p.svc.Resolve(ctx, token)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			p.ClearLocalState()
			return nil, nil
		}
		return nil, err
	}

	sess := &session.Session{
		Token:     token,
		User:      session.User{ID: user.ID, Email: user.Email},
		ExpiresAt: backing.ExpiresAt,
	}
	p.mu.Lock()
	p.current = sess
	p.backing = backing
	p.mu.Unlock()
	return sess, nil
}

func (p *Local) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	backing, bearer, err := p.svc.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		Token:     bearer,
		User:      session.User{ID: backing.UserID, Email: backing.Email},
		ExpiresAt: backing.ExpiresAt,
	}
	p.mu.Lock()
	p.token = bearer
	p.current = sess
	p.backing = backing
	p.mu.Unlock()

	p.emit(sess)
	return sess, nil
}

// SignOut revokes the held session at the service. Local state is
// cleared and subscribers notified regardless of the outcome.
func (p *Local) SignOut(ctx context.Context, global bool) error {
	p.mu.Lock()
	token := p.token
	backing := p.backing
	p.token = ""
	p.current = nil
	p.backing = nil
	p.mu.Unlock()

	if token == "" {
		return nil
	}
	defer p.emit(nil)

	if backing == nil {
		resolved, _, err := p.svc.Resolve(ctx, token)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
				return nil
			}
			return err
		}
		backing = resolved
	}

	scope := models.ScopeLocal
	if global {
		scope = models.ScopeGlobal
	}
	return p.svc.SignOut(ctx, backing, scope)
}

func (p *Local) ClearLocalState() {
	p.mu.Lock()
	p.token = ""
	p.current = nil
	p.backing = nil
	p.mu.Unlock()
}

// onServiceEvent reacts to sign-outs performed elsewhere. A global
// sign-out event carries no session and hits every client of the
// account; a local one only matters if it names our session. Our own
// sign-out has already cleared the state by the time its event lands,
// so nothing is emitted twice.
func (p *Local) onServiceEvent(ev models.Event) {
	if ev.Type != models.EventSignedOut {
		return
	}
	p.mu.Lock()
	affected := p.current != nil && p.current.User.ID == ev.UserID &&
		(ev.Session == nil || (p.backing != nil && ev.Session.ID == p.backing.ID))
	if affected {
		p.token = ""
		p.current = nil
		p.backing = nil
	}
	p.mu.Unlock()

	if affected {
		p.emit(nil)
	}
}

func (p *Local) emit(sess *session.Session) {
	p.mu.Lock()
	fns := make([]func(*session.Session), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(sess)
	}
}
