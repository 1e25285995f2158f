// Package store persists the content tables: climate articles, blog
// posts, gallery items, data sources and the admin marker set.
package store

import (
	"context"
	"sort"
	"sync"

	"climatecentre/internal/content/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

// InMemoryStore keeps all content tables in maps. It backs tests and
// single-node development deployments; production uses Postgres.
type InMemoryStore struct {
	mu          sync.RWMutex
	articles    map[id.RecordID]models.Article
	blogPosts   map[id.RecordID]models.BlogPost
	gallery     map[id.RecordID]models.GalleryItem
	dataSources map[id.RecordID]models.DataSource
	admins      map[id.UserID]models.AdminUser
}

func New() *InMemoryStore {
	return &InMemoryStore{
		articles:    make(map[id.RecordID]models.Article),
		blogPosts:   make(map[id.RecordID]models.BlogPost),
		gallery:     make(map[id.RecordID]models.GalleryItem),
		dataSources: make(map[id.RecordID]models.DataSource),
		admins:      make(map[id.UserID]models.AdminUser),
	}
}

func (s *InMemoryStore) CreateArticle(_ context.Context, article models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[article.ID]; exists {
		return sentinel.ErrConflict
	}
	s.articles[article.ID] = article
	return nil
}

func (s *InMemoryStore) UpdateArticle(_ context.Context, article models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[article.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.articles[article.ID] = article
	return nil
}

func (s *InMemoryStore) DeleteArticle(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.articles[recordID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.articles, recordID)
	return nil
}

func (s *InMemoryStore) GetArticle(_ context.Context, recordID id.RecordID) (models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if article, ok := s.articles[recordID]; ok {
		return article, nil
	}
	return models.Article{}, sentinel.ErrNotFound
}

// ListArticles returns articles newest first, optionally restricted to
// one category.
func (s *InMemoryStore) ListArticles(_ context.Context, category string) ([]models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Article, 0, len(s.articles))
	for _, article := range s.articles {
		if category != "" && article.Category != category {
			continue
		}
		out = append(out, article)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CreateBlogPost(_ context.Context, post models.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogPosts[post.ID]; exists {
		return sentinel.ErrConflict
	}
	s.blogPosts[post.ID] = post
	return nil
}

func (s *InMemoryStore) UpdateBlogPost(_ context.Context, post models.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogPosts[post.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.blogPosts[post.ID] = post
	return nil
}

func (s *InMemoryStore) DeleteBlogPost(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blogPosts[recordID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.blogPosts, recordID)
	return nil
}

func (s *InMemoryStore) GetBlogPost(_ context.Context, recordID id.RecordID) (models.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if post, ok := s.blogPosts[recordID]; ok {
		return post, nil
	}
	return models.BlogPost{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListBlogPosts(_ context.Context) ([]models.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BlogPost, 0, len(s.blogPosts))
	for _, post := range s.blogPosts {
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CreateGalleryItem(_ context.Context, item models.GalleryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.gallery[item.ID]; exists {
		return sentinel.ErrConflict
	}
	s.gallery[item.ID] = item
	return nil
}

// UpdateGalleryItem replaces the mutable fields; CreatedAt is kept
// from the stored row.
func (s *InMemoryStore) UpdateGalleryItem(_ context.Context, item models.GalleryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.gallery[item.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	item.CreatedAt = existing.CreatedAt
	s.gallery[item.ID] = item
	return nil
}

func (s *InMemoryStore) DeleteGalleryItem(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.gallery[recordID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.gallery, recordID)
	return nil
}

func (s *InMemoryStore) ListGalleryItems(_ context.Context) ([]models.GalleryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.GalleryItem, 0, len(s.gallery))
	for _, item := range s.gallery {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CreateDataSource(_ context.Context, source models.DataSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.dataSources[source.ID]; exists {
		return sentinel.ErrConflict
	}
	s.dataSources[source.ID] = source
	return nil
}

// UpdateDataSource replaces the mutable fields; CreatedAt and
// LastFetched are kept from the stored row.
func (s *InMemoryStore) UpdateDataSource(_ context.Context, source models.DataSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.dataSources[source.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	source.CreatedAt = existing.CreatedAt
	source.LastFetched = existing.LastFetched
	s.dataSources[source.ID] = source
	return nil
}

func (s *InMemoryStore) DeleteDataSource(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.dataSources[recordID]; !exists {
		return sentinel.ErrNotFound
	}
	delete(s.dataSources, recordID)
	return nil
}

func (s *InMemoryStore) ListDataSources(_ context.Context) ([]models.DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DataSource, 0, len(s.dataSources))
	for _, source := range s.dataSources {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// PutAdminUser installs an admin marker. Used by the bootstrap path
// and tests; there is no HTTP surface for it.
func (s *InMemoryStore) PutAdminUser(_ context.Context, admin models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[admin.ID] = admin
	return nil
}

func (s *InMemoryStore) ListAdminUsers(_ context.Context) ([]models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AdminUser, 0, len(s.admins))
	for _, admin := range s.admins {
		out = append(out, admin)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// IsAdminUser reports whether the user carries an admin marker. This
// is the only admin-detection path in the system.
func (s *InMemoryStore) IsAdminUser(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[userID]
	return ok, nil
}
