package session

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
)

type fakeAccount struct {
	password string
	user     User
}

// fakeProvider is an in-memory auth backend. emit delivers a session
// change as if it came from outside the Manager.
type fakeProvider struct {
	mu           sync.Mutex
	stored       *Session
	accounts     map[string]fakeAccount
	currentErr   error
	signOutErr   error
	fn           func(*Session)
	calls        []string
	clearCalls   int
	signOutCalls int
	unsubCalls   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: make(map[string]fakeAccount)}
}

func (p *fakeProvider) addAccount(email, password string) User {
	user := User{ID: domain.UserID(uuid.New()), Email: email}
	p.accounts[email] = fakeAccount{password: password, user: user}
	return user
}

func (p *fakeProvider) Subscribe(fn func(*Session)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "subscribe")
	p.fn = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.fn = nil
		p.unsubCalls++
	}, nil
}

func (p *fakeProvider) CurrentSession(context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "current_session")
	if p.currentErr != nil {
		return nil, p.currentErr
	}
	return p.stored, nil
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[email]
	if !ok || acct.password != password {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	sess := &Session{Token: "token-" + email, User: acct.user, ExpiresAt: time.Now().Add(time.Hour)}
	p.stored = sess
	return sess, nil
}

func (p *fakeProvider) SignOut(context.Context, bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOutCalls++
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.stored = nil
	return nil
}

func (p *fakeProvider) ClearLocalState() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearCalls++
}

func (p *fakeProvider) emit(sess *Session) {
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()
	if fn != nil {
		fn(sess)
	}
}

// fakeChecker answers admin checks from a set. blockNext, when armed,
// makes exactly one call wait until released, with started signalling
// that the call is in flight.
type fakeChecker struct {
	mu        sync.Mutex
	admins    map[domain.UserID]bool
	err       error
	blockNext chan struct{}
	started   chan struct{}
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{admins: make(map[domain.UserID]bool)}
}

func (c *fakeChecker) IsAdmin(_ context.Context, userID domain.UserID) (bool, error) {
	c.mu.Lock()
	block := c.blockNext
	c.blockNext = nil
	started := c.started
	err := c.err
	isAdmin := c.admins[userID]
	c.mu.Unlock()

	if block != nil {
		if started != nil {
			started <- struct{}{}
		}
		<-block
	}
	if err != nil {
		return false, err
	}
	return isAdmin, nil
}

type ManagerSuite struct {
	suite.Suite
	provider *fakeProvider
	checker  *fakeChecker
	mgr      *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.provider = newFakeProvider()
	s.checker = newFakeChecker()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.mgr = New(s.provider, s.checker, logger)
}

// Each s.Run subtest builds its own fixtures and initializes the
// manager itself, so it needs the same fresh start a test method gets.
func (s *ManagerSuite) SetupSubTest() {
	s.SetupTest()
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) TestInitialize() {
	s.Run("state is loading until the first resolution", func() {
		st := s.mgr.State()
		s.True(st.Loading)
		s.Equal(StatusUnknown, Evaluate(st))
	})

	s.Run("subscribes before fetching the stored session", func() {
		s.Require().NoError(s.mgr.Initialize(context.Background()))
		s.Equal([]string{"subscribe", "current_session"}, s.provider.calls)
	})

	s.Run("no stored session resolves to signed out", func() {
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		st := s.mgr.State()
		s.False(st.Loading)
		s.Nil(st.User)
		s.Nil(st.Session)
		s.False(st.IsAdmin)
	})

	s.Run("a stored session is restored with its admin flag", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		_, err := s.provider.SignInWithPassword(context.Background(), "admin@example.com", "secret1")
		s.Require().NoError(err)

		s.Require().NoError(s.mgr.Initialize(context.Background()))

		st := s.mgr.State()
		s.Require().NotNil(st.User)
		s.Equal(user.ID, st.User.ID)
		s.True(st.IsAdmin)
	})

	s.Run("restore stays loading until the admin check resolves", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		_, err := s.provider.SignInWithPassword(context.Background(), "admin@example.com", "secret1")
		s.Require().NoError(err)

		release := make(chan struct{})
		started := make(chan struct{}, 1)
		s.checker.mu.Lock()
		s.checker.blockNext = release
		s.checker.started = started
		s.checker.mu.Unlock()

		done := make(chan struct{})
		go func() {
			s.Require().NoError(s.mgr.Initialize(context.Background()))
			close(done)
		}()
		<-started

		st := s.mgr.State()
		s.True(st.Loading)
		s.Equal(StatusUnknown, Evaluate(st))

		close(release)
		<-done

		st = s.mgr.State()
		s.False(st.Loading)
		s.True(st.IsAdmin)
	})

	s.Run("watchers never see an admin restore pass through a denied state", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		_, err := s.provider.SignInWithPassword(context.Background(), "admin@example.com", "secret1")
		s.Require().NoError(err)

		var seen []State
		cancel := s.mgr.Watch(func(st State) { seen = append(seen, st) })
		defer cancel()

		s.Require().NoError(s.mgr.Initialize(context.Background()))

		for _, st := range seen {
			s.NotEqual(StatusForbidden, Evaluate(st))
			if !st.Loading && st.User != nil {
				s.True(st.IsAdmin)
			}
		}
		s.Require().NotEmpty(seen)
		s.Equal(StatusGranted, Evaluate(seen[len(seen)-1]))
	})

	s.Run("a non-admin restore resolves straight to forbidden", func() {
		s.provider.addAccount("user@example.com", "secret1")
		_, err := s.provider.SignInWithPassword(context.Background(), "user@example.com", "secret1")
		s.Require().NoError(err)

		var seen []Status
		cancel := s.mgr.Watch(func(st State) { seen = append(seen, Evaluate(st)) })
		defer cancel()

		s.Require().NoError(s.mgr.Initialize(context.Background()))

		for _, status := range seen[:len(seen)-1] {
			s.Equal(StatusUnknown, status)
		}
		s.Equal(StatusForbidden, seen[len(seen)-1])
	})

	s.Run("a failed restore starts signed out instead of failing", func() {
		s.provider.currentErr = dErrors.New(dErrors.CodeUnavailable, "auth backend down")

		s.Require().NoError(s.mgr.Initialize(context.Background()))

		st := s.mgr.State()
		s.False(st.Loading)
		s.Nil(st.User)
	})
}

func (s *ManagerSuite) TestSignIn() {
	s.Run("admin account ends up signed in with admin rights", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		s.Require().NoError(s.mgr.SignIn(context.Background(), "admin@example.com", "secret1"))

		st := s.mgr.State()
		s.Require().NotNil(st.User)
		s.Equal("admin@example.com", st.User.Email)
		s.True(st.IsAdmin)
		s.Equal(StatusGranted, Evaluate(st))
	})

	s.Run("non-admin account ends up signed in without admin rights", func() {
		s.provider.addAccount("user@example.com", "secret1")
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		s.Require().NoError(s.mgr.SignIn(context.Background(), "user@example.com", "secret1"))

		st := s.mgr.State()
		s.Require().NotNil(st.User)
		s.False(st.IsAdmin)
		s.Equal(StatusForbidden, Evaluate(st))
	})

	s.Run("wrong password returns the error and leaves state untouched", func() {
		s.provider.addAccount("user@example.com", "secret1")
		s.Require().NoError(s.mgr.Initialize(context.Background()))
		before := s.mgr.State()

		err := s.mgr.SignIn(context.Background(), "user@example.com", "wrong")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(before, s.mgr.State())
	})

	s.Run("clears local state and revokes old sessions before signing in", func() {
		s.provider.addAccount("user@example.com", "secret1")
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		s.Require().NoError(s.mgr.SignIn(context.Background(), "user@example.com", "secret1"))

		s.GreaterOrEqual(s.provider.clearCalls, 1)
		s.GreaterOrEqual(s.provider.signOutCalls, 1)
	})

	s.Run("still signs in when the pre-sign-in revocation fails", func() {
		s.provider.addAccount("user@example.com", "secret1")
		s.provider.signOutErr = dErrors.New(dErrors.CodeUnavailable, "auth backend down")
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		s.Require().NoError(s.mgr.SignIn(context.Background(), "user@example.com", "secret1"))
		s.NotNil(s.mgr.State().User)
	})
}

func (s *ManagerSuite) TestSignOut() {
	s.Run("resets user, session and admin flag", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		s.Require().NoError(s.mgr.Initialize(context.Background()))
		s.Require().NoError(s.mgr.SignIn(context.Background(), "admin@example.com", "secret1"))

		s.mgr.SignOut(context.Background())

		st := s.mgr.State()
		s.Nil(st.User)
		s.Nil(st.Session)
		s.False(st.IsAdmin)
	})

	s.Run("resets even when the revocation request fails", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		s.Require().NoError(s.mgr.Initialize(context.Background()))
		s.Require().NoError(s.mgr.SignIn(context.Background(), "admin@example.com", "secret1"))
		s.provider.signOutErr = dErrors.New(dErrors.CodeUnavailable, "auth backend down")

		s.mgr.SignOut(context.Background())

		st := s.mgr.State()
		s.Nil(st.User)
		s.False(st.IsAdmin)
	})

	s.Run("the very first update after sign-out is already signed out", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		s.Require().NoError(s.mgr.Initialize(context.Background()))
		s.Require().NoError(s.mgr.SignIn(context.Background(), "admin@example.com", "secret1"))

		var first *State
		cancel := s.mgr.Watch(func(st State) {
			if first == nil {
				copied := st
				first = &copied
			}
		})
		first = nil // drop the immediate snapshot delivery
		defer cancel()

		s.mgr.SignOut(context.Background())

		s.Require().NotNil(first)
		s.Nil(first.User)
		s.Equal(StatusSignedOut, Evaluate(*first))
	})
}

func (s *ManagerSuite) TestAdminChecks() {
	s.Run("checker errors leave the user non-admin", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		s.checker.err = dErrors.New(dErrors.CodeUnavailable, "content store down")
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		s.Require().NoError(s.mgr.SignIn(context.Background(), "admin@example.com", "secret1"))
		s.False(s.mgr.State().IsAdmin)
	})

	s.Run("a check overtaken by a sign-out is discarded", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		release := make(chan struct{})
		started := make(chan struct{}, 1)
		s.checker.mu.Lock()
		s.checker.blockNext = release
		s.checker.started = started
		s.checker.mu.Unlock()

		sess := &Session{Token: "t", User: user, ExpiresAt: time.Now().Add(time.Hour)}
		done := make(chan struct{})
		go func() {
			s.provider.emit(sess)
			close(done)
		}()
		<-started

		s.mgr.SignOut(context.Background())
		close(release)
		<-done

		st := s.mgr.State()
		s.Nil(st.User)
		s.False(st.IsAdmin)
	})

	s.Run("a check overtaken by a user switch is discarded", func() {
		admin := s.provider.addAccount("admin@example.com", "secret1")
		other := s.provider.addAccount("user@example.com", "secret1")
		s.checker.admins[admin.ID] = true
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		release := make(chan struct{})
		started := make(chan struct{}, 1)
		s.checker.mu.Lock()
		s.checker.blockNext = release
		s.checker.started = started
		s.checker.mu.Unlock()

		adminSess := &Session{Token: "ta", User: admin, ExpiresAt: time.Now().Add(time.Hour)}
		done := make(chan struct{})
		go func() {
			s.provider.emit(adminSess)
			close(done)
		}()
		<-started

		s.provider.emit(&Session{Token: "tu", User: other, ExpiresAt: time.Now().Add(time.Hour)})
		close(release)
		<-done

		st := s.mgr.State()
		s.Require().NotNil(st.User)
		s.Equal(other.ID, st.User.ID)
		s.False(st.IsAdmin)
	})
}

func (s *ManagerSuite) TestWatch() {
	s.Run("admin is never reported for an absent user", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.checker.admins[user.ID] = true

		cancel := s.mgr.Watch(func(st State) {
			if st.User == nil {
				s.False(st.IsAdmin)
			}
		})
		defer cancel()

		ctx := context.Background()
		s.Require().NoError(s.mgr.Initialize(ctx))
		s.Require().NoError(s.mgr.SignIn(ctx, "admin@example.com", "secret1"))
		s.mgr.SignOut(ctx)
		s.Require().NoError(s.mgr.SignIn(ctx, "admin@example.com", "secret1"))
		s.provider.emit(nil)
	})

	s.Run("delivers the current state immediately", func() {
		var got []State
		cancel := s.mgr.Watch(func(st State) { got = append(got, st) })
		defer cancel()

		s.Require().Len(got, 1)
		s.True(got[0].Loading)
	})

	s.Run("cancel stops delivery", func() {
		calls := 0
		cancel := s.mgr.Watch(func(State) { calls++ })
		cancel()

		s.Require().NoError(s.mgr.Initialize(context.Background()))
		s.Equal(1, calls)
	})
}

func (s *ManagerSuite) TestClose() {
	s.Run("cancels the subscription and drops later events", func() {
		user := s.provider.addAccount("admin@example.com", "secret1")
		s.Require().NoError(s.mgr.Initialize(context.Background()))

		s.mgr.Close()
		s.Equal(1, s.provider.unsubCalls)

		s.mgr.applySession(context.Background(), &Session{Token: "t", User: user})
		s.Nil(s.mgr.State().User)
	})

	s.Run("closing twice is harmless", func() {
		s.Require().NoError(s.mgr.Initialize(context.Background()))
		s.mgr.Close()
		s.mgr.Close()
		s.Equal(1, s.provider.unsubCalls)
	})
}
