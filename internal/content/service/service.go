// Package service holds the content business rules: input validation,
// newest-first reads, markdown rendering for public views, and the
// privileged admin-membership check.
package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"climatecentre/internal/content/metrics"
	"climatecentre/internal/content/models"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/sentinel"
)

// Store is the persistence surface the service needs. Both the memory
// and Postgres stores satisfy it.
type Store interface {
	CreateArticle(ctx context.Context, article models.Article) error
	UpdateArticle(ctx context.Context, article models.Article) error
	DeleteArticle(ctx context.Context, recordID id.RecordID) error
	GetArticle(ctx context.Context, recordID id.RecordID) (models.Article, error)
	ListArticles(ctx context.Context, category string) ([]models.Article, error)

	CreateBlogPost(ctx context.Context, post models.BlogPost) error
	UpdateBlogPost(ctx context.Context, post models.BlogPost) error
	DeleteBlogPost(ctx context.Context, recordID id.RecordID) error
	GetBlogPost(ctx context.Context, recordID id.RecordID) (models.BlogPost, error)
	ListBlogPosts(ctx context.Context) ([]models.BlogPost, error)

	CreateGalleryItem(ctx context.Context, item models.GalleryItem) error
	UpdateGalleryItem(ctx context.Context, item models.GalleryItem) error
	DeleteGalleryItem(ctx context.Context, recordID id.RecordID) error
	ListGalleryItems(ctx context.Context) ([]models.GalleryItem, error)

	CreateDataSource(ctx context.Context, source models.DataSource) error
	UpdateDataSource(ctx context.Context, source models.DataSource) error
	DeleteDataSource(ctx context.Context, recordID id.RecordID) error
	ListDataSources(ctx context.Context) ([]models.DataSource, error)

	ListAdminUsers(ctx context.Context) ([]models.AdminUser, error)
	IsAdminUser(ctx context.Context, userID id.UserID) (bool, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

// ArticleView is an article prepared for public reading: the raw
// markdown body plus its rendered HTML.
type ArticleView struct {
	models.Article
	ContentHTML string
}

// BlogPostView is a blog post prepared for public reading.
type BlogPostView struct {
	models.BlogPost
	ContentHTML string
}

type ArticleInput struct {
	Title     string
	Category  string
	Content   string
	SourceURL string
}

type BlogPostInput struct {
	Title    string
	Author   string
	Category string
	Content  string
	ImageURL string
}

type GalleryItemInput struct {
	Title       string
	Description string
	ImageURL    string
}

type DataSourceInput struct {
	Name        string
	Category    string
	URL         string
	APIEndpoint string
	Description string
}

func (s *Service) CreateArticle(ctx context.Context, in ArticleInput) (models.Article, error) {
	if err := validateArticle(in); err != nil {
		return models.Article{}, err
	}
	now := s.now()
	article := models.Article{
		ID:          id.RecordID(uuid.New()),
		Title:       strings.TrimSpace(in.Title),
		Category:    strings.TrimSpace(in.Category),
		Content:     in.Content,
		SourceURL:   strings.TrimSpace(in.SourceURL),
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := s.store.CreateArticle(ctx, article); err != nil {
		return models.Article{}, storeErr("create article", err)
	}
	metrics.IncWrite("article", "create")
	return article, nil
}

func (s *Service) UpdateArticle(ctx context.Context, recordID id.RecordID, in ArticleInput) (models.Article, error) {
	if err := validateArticle(in); err != nil {
		return models.Article{}, err
	}
	existing, err := s.store.GetArticle(ctx, recordID)
	if err != nil {
		return models.Article{}, storeErr("update article", err)
	}
	existing.Title = strings.TrimSpace(in.Title)
	existing.Category = strings.TrimSpace(in.Category)
	existing.Content = in.Content
	existing.SourceURL = strings.TrimSpace(in.SourceURL)
	existing.LastUpdated = s.now()
	if err := s.store.UpdateArticle(ctx, existing); err != nil {
		return models.Article{}, storeErr("update article", err)
	}
	metrics.IncWrite("article", "update")
	return existing, nil
}

func (s *Service) DeleteArticle(ctx context.Context, recordID id.RecordID) error {
	if err := s.store.DeleteArticle(ctx, recordID); err != nil {
		return storeErr("delete article", err)
	}
	metrics.IncWrite("article", "delete")
	return nil
}

func (s *Service) GetArticle(ctx context.Context, recordID id.RecordID) (ArticleView, error) {
	article, err := s.store.GetArticle(ctx, recordID)
	if err != nil {
		return ArticleView{}, storeErr("get article", err)
	}
	return ArticleView{Article: article, ContentHTML: s.renderHTML(ctx, article.Content)}, nil
}

func (s *Service) ListArticles(ctx context.Context, category string) ([]ArticleView, error) {
	articles, err := s.store.ListArticles(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, storeErr("list articles", err)
	}
	out := make([]ArticleView, 0, len(articles))
	for _, article := range articles {
		out = append(out, ArticleView{Article: article, ContentHTML: s.renderHTML(ctx, article.Content)})
	}
	return out, nil
}

func (s *Service) CreateBlogPost(ctx context.Context, in BlogPostInput) (models.BlogPost, error) {
	if err := validateBlogPost(in); err != nil {
		return models.BlogPost{}, err
	}
	now := s.now()
	post := models.BlogPost{
		ID:        id.RecordID(uuid.New()),
		Title:     strings.TrimSpace(in.Title),
		Author:    strings.TrimSpace(in.Author),
		Category:  strings.TrimSpace(in.Category),
		Content:   in.Content,
		ImageURL:  strings.TrimSpace(in.ImageURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateBlogPost(ctx, post); err != nil {
		return models.BlogPost{}, storeErr("create blog post", err)
	}
	metrics.IncWrite("blog_post", "create")
	return post, nil
}

func (s *Service) UpdateBlogPost(ctx context.Context, recordID id.RecordID, in BlogPostInput) (models.BlogPost, error) {
	if err := validateBlogPost(in); err != nil {
		return models.BlogPost{}, err
	}
	existing, err := s.store.GetBlogPost(ctx, recordID)
	if err != nil {
		return models.BlogPost{}, storeErr("update blog post", err)
	}
	existing.Title = strings.TrimSpace(in.Title)
	existing.Author = strings.TrimSpace(in.Author)
	existing.Category = strings.TrimSpace(in.Category)
	existing.Content = in.Content
	existing.ImageURL = strings.TrimSpace(in.ImageURL)
	existing.UpdatedAt = s.now()
	if err := s.store.UpdateBlogPost(ctx, existing); err != nil {
		return models.BlogPost{}, storeErr("update blog post", err)
	}
	metrics.IncWrite("blog_post", "update")
	return existing, nil
}

func (s *Service) DeleteBlogPost(ctx context.Context, recordID id.RecordID) error {
	if err := s.store.DeleteBlogPost(ctx, recordID); err != nil {
		return storeErr("delete blog post", err)
	}
	metrics.IncWrite("blog_post", "delete")
	return nil
}

func (s *Service) GetBlogPost(ctx context.Context, recordID id.RecordID) (BlogPostView, error) {
	post, err := s.store.GetBlogPost(ctx, recordID)
	if err != nil {
		return BlogPostView{}, storeErr("get blog post", err)
	}
	return BlogPostView{BlogPost: post, ContentHTML: s.renderHTML(ctx, post.Content)}, nil
}

func (s *Service) ListBlogPosts(ctx context.Context) ([]BlogPostView, error) {
	posts, err := s.store.ListBlogPosts(ctx)
	if err != nil {
		return nil, storeErr("list blog posts", err)
	}
	out := make([]BlogPostView, 0, len(posts))
	for _, post := range posts {
		out = append(out, BlogPostView{BlogPost: post, ContentHTML: s.renderHTML(ctx, post.Content)})
	}
	return out, nil
}

func (s *Service) CreateGalleryItem(ctx context.Context, in GalleryItemInput) (models.GalleryItem, error) {
	if err := validateGalleryItem(in); err != nil {
		return models.GalleryItem{}, err
	}
	item := models.GalleryItem{
		ID:          id.RecordID(uuid.New()),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateGalleryItem(ctx, item); err != nil {
		return models.GalleryItem{}, storeErr("create gallery item", err)
	}
	metrics.IncWrite("gallery_item", "create")
	return item, nil
}

func (s *Service) UpdateGalleryItem(ctx context.Context, recordID id.RecordID, in GalleryItemInput) (models.GalleryItem, error) {
	if err := validateGalleryItem(in); err != nil {
		return models.GalleryItem{}, err
	}
	item := models.GalleryItem{
		ID:          recordID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	if err := s.store.UpdateGalleryItem(ctx, item); err != nil {
		return models.GalleryItem{}, storeErr("update gallery item", err)
	}
	metrics.IncWrite("gallery_item", "update")
	return item, nil
}

func (s *Service) DeleteGalleryItem(ctx context.Context, recordID id.RecordID) error {
	if err := s.store.DeleteGalleryItem(ctx, recordID); err != nil {
		return storeErr("delete gallery item", err)
	}
	metrics.IncWrite("gallery_item", "delete")
	return nil
}

func (s *Service) ListGalleryItems(ctx context.Context) ([]models.GalleryItem, error) {
	items, err := s.store.ListGalleryItems(ctx)
	if err != nil {
		return nil, storeErr("list gallery items", err)
	}
	return items, nil
}

func (s *Service) CreateDataSource(ctx context.Context, in DataSourceInput) (models.DataSource, error) {
	if err := validateDataSource(in); err != nil {
		return models.DataSource{}, err
	}
	source := models.DataSource{
		ID:          id.RecordID(uuid.New()),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		URL:         strings.TrimSpace(in.URL),
		APIEndpoint: strings.TrimSpace(in.APIEndpoint),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateDataSource(ctx, source); err != nil {
		return models.DataSource{}, storeErr("create data source", err)
	}
	metrics.IncWrite("data_source", "create")
	return source, nil
}

func (s *Service) UpdateDataSource(ctx context.Context, recordID id.RecordID, in DataSourceInput) (models.DataSource, error) {
	if err := validateDataSource(in); err != nil {
		return models.DataSource{}, err
	}
	source := models.DataSource{
		ID:          recordID,
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		URL:         strings.TrimSpace(in.URL),
		APIEndpoint: strings.TrimSpace(in.APIEndpoint),
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.store.UpdateDataSource(ctx, source); err != nil {
		return models.DataSource{}, storeErr("update data source", err)
	}
	metrics.IncWrite("data_source", "update")
	return source, nil
}

func (s *Service) DeleteDataSource(ctx context.Context, recordID id.RecordID) error {
	if err := s.store.DeleteDataSource(ctx, recordID); err != nil {
		return storeErr("delete data source", err)
	}
	metrics.IncWrite("data_source", "delete")
	return nil
}

func (s *Service) ListDataSources(ctx context.Context) ([]models.DataSource, error) {
	sources, err := s.store.ListDataSources(ctx)
	if err != nil {
		return nil, storeErr("list data sources", err)
	}
	return sources, nil
}

func (s *Service) ListAdminUsers(ctx context.Context) ([]models.AdminUser, error) {
	admins, err := s.store.ListAdminUsers(ctx)
	if err != nil {
		return nil, storeErr("list admin users", err)
	}
	return admins, nil
}

// IsAdmin delegates to the store's privileged membership check. It is
// the single admin-detection path; callers treat errors as "no".
func (s *Service) IsAdmin(ctx context.Context, userID id.UserID) (bool, error) {
	isAdmin, err := s.store.IsAdminUser(ctx, userID)
	if err != nil {
		return false, storeErr("admin check", err)
	}
	return isAdmin, nil
}

// renderHTML converts a markdown body for public views. A body that
// fails to render degrades to a plain fallback instead of erroring the
// whole read.
func (s *Service) renderHTML(ctx context.Context, markdown string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		metrics.IncRenderFailure()
		s.logger.ErrorContext(ctx, "markdown render failed", "error", err)
		return "<p>This content could not be rendered.</p>"
	}
	return buf.String()
}

func validateArticle(in ArticleInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	case strings.TrimSpace(in.Category) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "category is required")
	case strings.TrimSpace(in.Content) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "content is required")
	}
	return validateOptionalURL("source_url", in.SourceURL)
}

func validateBlogPost(in BlogPostInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	case strings.TrimSpace(in.Author) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "author is required")
	case strings.TrimSpace(in.Category) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "category is required")
	case strings.TrimSpace(in.Content) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "content is required")
	}
	return validateOptionalURL("image_url", in.ImageURL)
}

func validateGalleryItem(in GalleryItemInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	case strings.TrimSpace(in.ImageURL) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "image_url is required")
	}
	return nil
}

func validateDataSource(in DataSourceInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	case strings.TrimSpace(in.Category) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "category is required")
	case strings.TrimSpace(in.URL) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "url is required")
	}
	if err := validateOptionalURL("url", in.URL); err != nil {
		return err
	}
	return validateOptionalURL("api_endpoint", in.APIEndpoint)
}

func validateOptionalURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return dErrors.New(dErrors.CodeInvalidInput, field+" must be an absolute URL")
	}
	return nil
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeInvalidInput, "record already exists")
	default:
		return dErrors.Wrap(dErrors.CodeUnavailable, op+" failed", err)
	}
}
