package storage

import (
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
	"climatecentre/pkg/requestcontext"
)

// 10 MiB, matches the largest gallery images we expect.
const maxUploadBytes = 10 << 20

type Handler struct {
	store  *FSStore
	logger *slog.Logger
}

func NewHandler(store *FSStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterAdmin mounts the upload route; the caller wraps it with the
// route guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/uploads", h.handleUpload)
}

type uploadResponse struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
}

// handleUpload accepts a multipart "file" part and stores it under a
// generated name, keeping the original extension. Clients address the
// object by the returned public URL only.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "upload could not be read"))
		return
	}

	name := "images/" + uuid.NewString() + safeExt(header.Filename)
	publicURL, err := h.store.Upload(r.Context(), name, data)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "upload failed",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, uploadResponse{Path: name, PublicURL: publicURL})
}

// safeExt keeps a short, lowercase extension from the client filename
// and drops anything suspicious.
func safeExt(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
