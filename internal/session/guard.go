package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
	"climatecentre/pkg/requestcontext"
)

// Status is the access decision for a state.
type Status int

const (
	// StatusUnknown means the state is still loading. Nothing may be
	// shown or denied yet.
	StatusUnknown Status = iota
	// StatusSignedOut means there is no user.
	StatusSignedOut
	// StatusForbidden means there is a user but not an admin.
	StatusForbidden
	// StatusGranted means an admin is signed in.
	StatusGranted
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusSignedOut:
		return "signed_out"
	case StatusForbidden:
		return "forbidden"
	case StatusGranted:
		return "granted"
	default:
		return "invalid"
	}
}

// Evaluate maps a state to an access decision. Loading wins over
// everything else: a state that is still loading never grants and
// never denies.
func Evaluate(st State) Status {
	switch {
	case st.Loading:
		return StatusUnknown
	case st.User == nil:
		return StatusSignedOut
	case !st.IsAdmin:
		return StatusForbidden
	default:
		return StatusGranted
	}
}

// TokenResolver turns a bearer token into the live session it names.
type TokenResolver interface {
	ResolveToken(ctx context.Context, bearer string) (*Session, error)
}

// Guard protects the admin surface of the HTTP server. Each request is
// resolved to a State and run through Evaluate, the same decision the
// client-side Manager uses.
type Guard struct {
	resolver TokenResolver
	checker  AdminChecker
	logger   *slog.Logger
}

func NewGuard(resolver TokenResolver, checker AdminChecker, logger *slog.Logger) *Guard {
	return &Guard{
		resolver: resolver,
		checker:  checker,
		logger:   logger,
	}
}

// RequireAdmin rejects requests that do not carry a valid session for
// an admin user. A known user without admin rights gets 403, everyone
// else gets 401.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := g.resolveState(r)
		switch Evaluate(st) {
		case StatusGranted:
			ctx := requestcontext.WithUserID(r.Context(), st.User.ID)
			ctx = requestcontext.WithIsAdmin(ctx, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		case StatusForbidden:
			g.logger.WarnContext(r.Context(), "admin route denied for non-admin user",
				"user_id", st.User.ID,
				"path", r.URL.Path,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin access required"))
		default:
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign in required"))
		}
	})
}

// RequireUser admits any valid session, admin or not.
func (g *Guard) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := g.resolveState(r)
		if st.User == nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign in required"))
			return
		}
		ctx := requestcontext.WithUserID(r.Context(), st.User.ID)
		ctx = requestcontext.WithIsAdmin(ctx, st.IsAdmin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// resolveState builds a per-request State. Resolution failures leave
// the state signed out; admin-check failures leave the user non-admin.
func (g *Guard) resolveState(r *http.Request) State {
	ctx := r.Context()

	bearer := bearerToken(r)
	if bearer == "" {
		return State{}
	}

	sess, err := g.resolver.ResolveToken(ctx, bearer)
	if err != nil || sess == nil {
		if err != nil && dErrors.HasCode(err, dErrors.CodeUnavailable) {
			g.logger.ErrorContext(ctx, "session store unavailable, treating request as signed out", "error", err)
		}
		return State{}
	}

	user := sess.User
	isAdmin, err := g.checker.IsAdmin(ctx, user.ID)
	if err != nil {
		g.logger.WarnContext(ctx, "admin check failed, treating user as non-admin",
			"error", err,
			"user_id", user.ID,
		)
		isAdmin = false
	}

	return State{User: &user, Session: sess, IsAdmin: isAdmin}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
