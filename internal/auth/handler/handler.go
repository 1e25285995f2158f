// Package handler exposes sign-in, sign-out and session inspection
// over HTTP. Credentials are validated locally before the auth service
// is consulted, and failed sign-ins always read the same to callers.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"climatecentre/internal/auth/models"
	"climatecentre/internal/auth/service"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
	"climatecentre/pkg/requestcontext"
)

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLength = 6

// AdminChecker reports admin membership for the session endpoint.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID id.UserID) (bool, error)
}

type Handler struct {
	svc    *service.Service
	admins AdminChecker
	logger *slog.Logger
}

func New(svc *service.Service, admins AdminChecker, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, admins: admins, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/sign-in", h.handleSignIn)
	r.Post("/auth/sign-out", h.handleSignOut)
	r.Get("/auth/session", h.handleSession)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Token     string      `json:"token,omitempty"`
	User      userPayload `json:"user"`
	Device    string      `json:"device,omitempty"`
	IsAdmin   bool        `json:"is_admin"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type signOutRequest struct {
	Scope string `json:"scope"`
}

// handleSignIn validates the form locally, then defers to the auth
// service. Validation failures name the field; credential failures are
// always the same generic message.
func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[signInRequest](w, r, h.logger)
	if !ok {
		return
	}

	email := strings.TrimSpace(req.Email)
	if !emailShape.MatchString(email) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "enter a valid email address"))
		return
	}
	if len(req.Password) < minPasswordLength {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "password must be at least 6 characters"))
		return
	}

	session, bearer, err := h.svc.SignInWithPassword(r.Context(), email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	isAdmin := h.checkAdmin(r.Context(), session.UserID)
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Token:     bearer,
		User:      userPayload{ID: session.UserID.String(), Email: session.Email},
		Device:    session.Device,
		IsAdmin:   isAdmin,
		ExpiresAt: session.ExpiresAt,
	})
}

// handleSignOut revokes the caller's session. Scope "local" revokes
// just this session; anything else revokes all of the user's sessions.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveBearer(w, r)
	if !ok {
		return
	}

	scope := models.ScopeGlobal
	if r.Body != nil && r.ContentLength != 0 {
		req, ok := httputil.DecodeJSON[signOutRequest](w, r, h.logger)
		if !ok {
			return
		}
		if strings.EqualFold(req.Scope, string(models.ScopeLocal)) {
			scope = models.ScopeLocal
		}
	}

	if err := h.svc.SignOut(r.Context(), session, scope); err != nil {
		h.logger.ErrorContext(r.Context(), "sign-out failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSession reports who the bearer token belongs to, including the
// admin flag the client-side guard consumes.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.resolveBearer(w, r)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		User:      userPayload{ID: session.UserID.String(), Email: session.Email},
		Device:    session.Device,
		IsAdmin:   h.checkAdmin(r.Context(), session.UserID),
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) resolveBearer(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign in required"))
		return nil, false
	}
	session, _, err := h.svc.Resolve(r.Context(), strings.TrimSpace(strings.TrimPrefix(header, prefix)))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return session, true
}

// checkAdmin fails closed: an unreachable store reads as "not admin".
func (h *Handler) checkAdmin(ctx context.Context, userID id.UserID) bool {
	isAdmin, err := h.admins.IsAdmin(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "admin check failed, reporting non-admin",
			"error", err,
			"user_id", userID,
		)
		return false
	}
	return isAdmin
}
