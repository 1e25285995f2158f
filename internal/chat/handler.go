package chat

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
)

// Questions longer than this are rejected before any upstream call.
const maxQuestionRunes = 2000

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/chat", h.handleAsk)
}

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[askRequest](w, r, h.logger)
	if !ok {
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "message is required"))
		return
	}
	if len([]rune(message)) > maxQuestionRunes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "message is too long"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, askResponse{Reply: h.svc.Ask(r.Context(), message)})
}
