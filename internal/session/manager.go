package session

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"climatecentre/pkg/domain"
)

// Manager keeps one client's view of who is signed in. It subscribes to
// the Provider before fetching the current session, so no change can
// slip through the gap between the two. The admin flag is recomputed
// whenever the user changes; a check that finishes after the user has
// already changed again is discarded.
type Manager struct {
	provider Provider
	checker  AdminChecker
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	closed      bool
	unsubscribe func()
	watchers    map[int]func(State)
	nextWatcher int

	adminChecks singleflight.Group
}

func New(provider Provider, checker AdminChecker, logger *slog.Logger) *Manager {
	return &Manager{
		provider: provider,
		checker:  checker,
		logger:   logger,
		state:    State{Loading: true},
		watchers: make(map[int]func(State)),
	}
}

// Initialize subscribes to session changes and then restores the
// current session. The order matters: subscribing first means a change
// landing during the restore fetch is still observed. A failed restore
// is treated as "signed out", not as a fatal error. The state stays
// loading until the restored session's admin check has resolved.
func (m *Manager) Initialize(ctx context.Context) error {
	unsubscribe, err := m.provider.Subscribe(func(sess *Session) {
		m.applySession(context.WithoutCancel(ctx), sess)
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		unsubscribe()
		return nil
	}
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	sess, err := m.provider.CurrentSession(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "could not restore session, starting signed out", "error", err)
		sess = nil
	}
	m.install(ctx, sess, true)
	return nil
}

// SignIn best-effort revokes the session currently held, clears any
// leftover local credentials, and signs in fresh. On failure the error
// is returned and the current state is untouched.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	if err := m.provider.SignOut(ctx, true); err != nil {
		m.logger.DebugContext(ctx, "pre-sign-in revocation failed", "error", err)
	}
	m.provider.ClearLocalState()

	sess, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	m.applySession(ctx, sess)
	return nil
}

// SignOut revokes the session everywhere and resets local state. The
// reset happens even when the revocation request fails, so the client
// is never left looking signed in with dead credentials.
func (m *Manager) SignOut(ctx context.Context) {
	if err := m.provider.SignOut(ctx, true); err != nil {
		m.logger.WarnContext(ctx, "sign-out request failed, clearing local state anyway", "error", err)
	}
	m.provider.ClearLocalState()
	m.applySession(ctx, nil)
}

// State returns a snapshot safe to hold across further changes.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Watch registers fn for state changes and calls it once immediately
// with the current state. The returned func cancels the registration.
func (m *Manager) Watch(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = fn
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	fn(snapshot)

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

// Close cancels the provider subscription. Changes delivered after
// Close are dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// applySession installs sess as the current session. The admin flag is
// reset whenever the user identity changes and then refreshed from the
// checker; a duplicate delivery of the same user keeps the flag it
// already earned.
func (m *Manager) applySession(ctx context.Context, sess *Session) {
	m.install(ctx, sess, false)
}

// install puts sess in place. During the initial restore the loading
// flag stays set until the restored user's admin check resolves, so
// watchers never observe an admin's bootstrap pass through a denied
// state. A nil restore has no check to wait for and resolves at once.
func (m *Manager) install(ctx context.Context, sess *Session, initial bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	prev := m.state.User
	if sess != nil {
		copied := *sess
		user := sess.User
		m.state.Session = &copied
		m.state.User = &user
		if prev == nil || prev.ID != user.ID {
			m.state.IsAdmin = false
		}
	} else {
		m.state.Session = nil
		m.state.User = nil
		m.state.IsAdmin = false
	}
	if !initial || sess == nil {
		m.state.Loading = false
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)

	if sess != nil {
		m.refreshAdmin(ctx, sess.User.ID, initial)
	}
}

// refreshAdmin asks the checker about userID and installs the answer
// only if userID is still the signed-in user. Errors count as "not an
// admin". Concurrent checks for the same user are collapsed. When the
// check concludes the initial restore, it also clears the loading flag.
func (m *Manager) refreshAdmin(ctx context.Context, userID domain.UserID, initial bool) {
	result, err, _ := m.adminChecks.Do(userID.String(), func() (any, error) {
		return m.checker.IsAdmin(ctx, userID)
	})

	isAdmin := false
	if err != nil {
		m.logger.WarnContext(ctx, "admin check failed, treating user as non-admin",
			"error", err,
			"user_id", userID,
		)
	} else {
		isAdmin = result.(bool)
	}

	m.mu.Lock()
	if m.closed || m.state.User == nil || m.state.User.ID != userID {
		m.mu.Unlock()
		return
	}
	changed := m.state.IsAdmin != isAdmin
	if initial && m.state.Loading {
		m.state.Loading = false
		changed = true
	}
	if !changed {
		m.mu.Unlock()
		return
	}
	m.state.IsAdmin = isAdmin
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snapshot)
}

func (m *Manager) snapshotLocked() State {
	snapshot := m.state
	if snapshot.User != nil {
		user := *snapshot.User
		snapshot.User = &user
	}
	if snapshot.Session != nil {
		sess := *snapshot.Session
		snapshot.Session = &sess
	}
	return snapshot
}

func (m *Manager) notify(snapshot State) {
	m.mu.Lock()
	fns := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}
