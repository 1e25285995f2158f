// Package handler exposes the content tables over HTTP: public reads
// and the guarded admin CRUD surface.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"climatecentre/internal/content/models"
	"climatecentre/internal/content/service"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the public read-only routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/content", h.handleListArticles)
	r.Get("/content/{id}", h.handleGetArticle)
	r.Get("/blog", h.handleListBlogPosts)
	r.Get("/blog/{id}", h.handleGetBlogPost)
	r.Get("/gallery", h.handleListGallery)
}

type articleResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html,omitempty"`
	SourceURL   string    `json:"source_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type blogPostResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type galleryItemResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func articleToResponse(a models.Article, html string) articleResponse {
	return articleResponse{
		ID:          a.ID.String(),
		Title:       a.Title,
		Category:    a.Category,
		Content:     a.Content,
		ContentHTML: html,
		SourceURL:   a.SourceURL,
		CreatedAt:   a.CreatedAt,
		LastUpdated: a.LastUpdated,
	}
}

func blogPostToResponse(p models.BlogPost, html string) blogPostResponse {
	return blogPostResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Author:      p.Author,
		Category:    p.Category,
		Content:     p.Content,
		ContentHTML: html,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func galleryItemToResponse(g models.GalleryItem) galleryItemResponse {
	return galleryItemResponse{
		ID:          g.ID.String(),
		Title:       g.Title,
		Description: g.Description,
		ImageURL:    g.ImageURL,
		CreatedAt:   g.CreatedAt,
	}
}

func (h *Handler) handleListArticles(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListArticles(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list articles failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]articleResponse, 0, len(views))
	for _, view := range views {
		out = append(out, articleToResponse(view.Article, view.ContentHTML))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "record not found"))
		return
	}
	view, err := h.svc.GetArticle(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, articleToResponse(view.Article, view.ContentHTML))
}

func (h *Handler) handleListBlogPosts(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListBlogPosts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list blog posts failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]blogPostResponse, 0, len(views))
	for _, view := range views {
		out = append(out, blogPostToResponse(view.BlogPost, view.ContentHTML))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetBlogPost(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "record not found"))
		return
	}
	view, err := h.svc.GetBlogPost(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, blogPostToResponse(view.BlogPost, view.ContentHTML))
}

func (h *Handler) handleListGallery(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListGalleryItems(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list gallery failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	out := make([]galleryItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, galleryItemToResponse(item))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
