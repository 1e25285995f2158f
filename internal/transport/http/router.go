// Package httptransport assembles the public and admin route trees. Handlers
// stay in their feature packages; this is wiring only.
package httptransport

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhandler "climatecentre/internal/auth/handler"
	"climatecentre/internal/chat"
	contenthandler "climatecentre/internal/content/handler"
	"climatecentre/internal/ratelimit"
	"climatecentre/internal/session"
	"climatecentre/internal/storage"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
	"climatecentre/pkg/platform/middleware/metadata"
	"climatecentre/pkg/platform/middleware/requestid"
)

// Deps carries everything the router mounts. All fields are required except
// Media, which disables upload and serving routes when nil.
type Deps struct {
	Auth    *authhandler.Handler
	Content *contenthandler.Handler
	Chat    *chat.Handler
	Guard   *session.Guard

	Media         *storage.Handler
	MediaFS       http.Handler
	MediaBasePath string

	ChatLimiter *ratelimit.SlidingWindow
	Logger      *slog.Logger
}

// NewRouter wires all endpoints. Admin routes sit behind the route guard;
// everything else is public.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "resource not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "method not allowed"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	d.Auth.Register(r)
	d.Content.Register(r)

	r.Group(func(gr chi.Router) {
		if d.ChatLimiter != nil {
			gr.Use(ratelimit.Middleware(d.ChatLimiter, d.Logger))
		}
		d.Chat.Register(gr)
	})

	if d.MediaFS != nil {
		base := strings.TrimSuffix(d.MediaBasePath, "/")
		if base == "" {
			base = "/media"
		}
		r.Handle(base+"/*", http.StripPrefix(base+"/", d.MediaFS))
	}

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(d.Guard.RequireAdmin)
		d.Content.RegisterAdmin(ar)
		if d.Media != nil {
			d.Media.RegisterAdmin(ar)
		}
	})

	return r
}
