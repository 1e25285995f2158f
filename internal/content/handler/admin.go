package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"climatecentre/internal/content/models"
	"climatecentre/internal/content/service"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/httputil"
	"climatecentre/pkg/requestcontext"
)

// RegisterAdmin mounts the CRUD routes. The caller wraps r with the
// route guard; nothing here re-checks admin membership.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/content", h.handleCreateArticle)
	r.Put("/content/{id}", h.handleUpdateArticle)
	r.Delete("/content/{id}", h.handleDeleteArticle)

	r.Post("/blog", h.handleCreateBlogPost)
	r.Put("/blog/{id}", h.handleUpdateBlogPost)
	r.Delete("/blog/{id}", h.handleDeleteBlogPost)

	r.Post("/gallery", h.handleCreateGalleryItem)
	r.Put("/gallery/{id}", h.handleUpdateGalleryItem)
	r.Delete("/gallery/{id}", h.handleDeleteGalleryItem)

	r.Post("/data-sources", h.handleCreateDataSource)
	r.Get("/data-sources", h.handleListDataSources)
	r.Put("/data-sources/{id}", h.handleUpdateDataSource)
	r.Delete("/data-sources/{id}", h.handleDeleteDataSource)

	r.Get("/users", h.handleListAdminUsers)
}

type articleRequest struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
}

type blogPostRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url"`
}

type galleryItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

type dataSourceRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	URL         string `json:"url"`
	APIEndpoint string `json:"api_endpoint"`
	Description string `json:"description"`
}

type dataSourceResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	URL         string     `json:"url"`
	APIEndpoint string     `json:"api_endpoint,omitempty"`
	Description string     `json:"description,omitempty"`
	LastFetched *time.Time `json:"last_fetched,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type adminUserResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func dataSourceToResponse(d models.DataSource) dataSourceResponse {
	return dataSourceResponse{
		ID:          d.ID.String(),
		Name:        d.Name,
		Category:    d.Category,
		URL:         d.URL,
		APIEndpoint: d.APIEndpoint,
		Description: d.Description,
		LastFetched: d.LastFetched,
		CreatedAt:   d.CreatedAt,
	}
}

// pathRecordID parses the {id} route parameter. Unparseable IDs read
// as "no such record" rather than a validation error, the same answer
// a well-formed unknown ID gets.
func pathRecordID(w http.ResponseWriter, r *http.Request) (id.RecordID, bool) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "record not found"))
		return id.RecordID{}, false
	}
	return recordID, true
}

func (h *Handler) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[articleRequest](w, r, h.logger)
	if !ok {
		return
	}
	article, err := h.svc.CreateArticle(r.Context(), service.ArticleInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "article created", article.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, articleToResponse(article, ""))
}

func (h *Handler) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[articleRequest](w, r, h.logger)
	if !ok {
		return
	}
	article, err := h.svc.UpdateArticle(r.Context(), recordID, service.ArticleInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "article updated", article.ID.String())
	httputil.WriteJSON(w, http.StatusOK, articleToResponse(article, ""))
}

func (h *Handler) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteArticle(r.Context(), recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "article deleted", recordID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateBlogPost(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[blogPostRequest](w, r, h.logger)
	if !ok {
		return
	}
	post, err := h.svc.CreateBlogPost(r.Context(), service.BlogPostInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "blog post created", post.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, blogPostToResponse(post, ""))
}

func (h *Handler) handleUpdateBlogPost(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[blogPostRequest](w, r, h.logger)
	if !ok {
		return
	}
	post, err := h.svc.UpdateBlogPost(r.Context(), recordID, service.BlogPostInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "blog post updated", post.ID.String())
	httputil.WriteJSON(w, http.StatusOK, blogPostToResponse(post, ""))
}

func (h *Handler) handleDeleteBlogPost(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteBlogPost(r.Context(), recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "blog post deleted", recordID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateGalleryItem(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[galleryItemRequest](w, r, h.logger)
	if !ok {
		return
	}
	item, err := h.svc.CreateGalleryItem(r.Context(), service.GalleryItemInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "gallery item created", item.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, galleryItemToResponse(item))
}

func (h *Handler) handleUpdateGalleryItem(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[galleryItemRequest](w, r, h.logger)
	if !ok {
		return
	}
	item, err := h.svc.UpdateGalleryItem(r.Context(), recordID, service.GalleryItemInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "gallery item updated", item.ID.String())
	httputil.WriteJSON(w, http.StatusOK, galleryItemToResponse(item))
}

func (h *Handler) handleDeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteGalleryItem(r.Context(), recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "gallery item deleted", recordID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateDataSource(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[dataSourceRequest](w, r, h.logger)
	if !ok {
		return
	}
	source, err := h.svc.CreateDataSource(r.Context(), service.DataSourceInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "data source created", source.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, dataSourceToResponse(source))
}

func (h *Handler) handleListDataSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.svc.ListDataSources(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]dataSourceResponse, 0, len(sources))
	for _, source := range sources {
		out = append(out, dataSourceToResponse(source))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUpdateDataSource(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[dataSourceRequest](w, r, h.logger)
	if !ok {
		return
	}
	source, err := h.svc.UpdateDataSource(r.Context(), recordID, service.DataSourceInput(req))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "data source updated", source.ID.String())
	httputil.WriteJSON(w, http.StatusOK, dataSourceToResponse(source))
}

func (h *Handler) handleDeleteDataSource(w http.ResponseWriter, r *http.Request) {
	recordID, ok := pathRecordID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteDataSource(r.Context(), recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logWrite(r, "data source deleted", recordID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAdminUsers(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.ListAdminUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]adminUserResponse, 0, len(admins))
	for _, admin := range admins {
		out = append(out, adminUserResponse{
			ID:           admin.ID.String(),
			Email:        admin.Email,
			IsSuperAdmin: admin.IsSuperAdmin,
			CreatedAt:    admin.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) logWrite(r *http.Request, msg, recordID string) {
	h.logger.InfoContext(r.Context(), msg,
		"record_id", recordID,
		"user_id", requestcontext.UserID(r.Context()),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
