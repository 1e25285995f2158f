package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"climatecentre/internal/content/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) article(title, category string, createdAt time.Time) models.Article {
	return models.Article{
		ID:          id.RecordID(uuid.New()),
		Title:       title,
		Category:    category,
		Content:     "## " + title,
		CreatedAt:   createdAt,
		LastUpdated: createdAt,
	}
}

func (s *MemoryStoreSuite) TestArticles() {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Run("create then get round-trips", func() {
		article := s.article("Rainfall patterns", "weather", base)
		s.Require().NoError(s.store.CreateArticle(ctx, article))

		got, err := s.store.GetArticle(ctx, article.ID)
		s.Require().NoError(err)
		s.Equal(article, got)
	})

	s.Run("creating the same id twice conflicts", func() {
		article := s.article("Dup", "weather", base)
		s.Require().NoError(s.store.CreateArticle(ctx, article))
		s.ErrorIs(s.store.CreateArticle(ctx, article), sentinel.ErrConflict)
	})

	s.Run("list orders newest first and honours the category filter", func() {
		older := s.article("Older", "farming", base.Add(time.Minute))
		newer := s.article("Newer", "farming", base.Add(2*time.Minute))
		s.Require().NoError(s.store.CreateArticle(ctx, older))
		s.Require().NoError(s.store.CreateArticle(ctx, newer))

		got, err := s.store.ListArticles(ctx, "farming")
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal("Newer", got[0].Title)
		s.Equal("Older", got[1].Title)
	})

	s.Run("update replaces the record, missing id is not found", func() {
		article := s.article("Before", "weather", base)
		s.Require().NoError(s.store.CreateArticle(ctx, article))

		article.Title = "After"
		s.Require().NoError(s.store.UpdateArticle(ctx, article))
		got, err := s.store.GetArticle(ctx, article.ID)
		s.Require().NoError(err)
		s.Equal("After", got.Title)

		missing := s.article("Ghost", "weather", base)
		s.ErrorIs(s.store.UpdateArticle(ctx, missing), sentinel.ErrNotFound)
	})

	s.Run("delete removes the record", func() {
		article := s.article("Doomed", "weather", base)
		s.Require().NoError(s.store.CreateArticle(ctx, article))
		s.Require().NoError(s.store.DeleteArticle(ctx, article.ID))

		_, err := s.store.GetArticle(ctx, article.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.ErrorIs(s.store.DeleteArticle(ctx, article.ID), sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestBlogPosts() {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := models.BlogPost{
		ID: id.RecordID(uuid.New()), Title: "First", Author: "Ama", Category: "news",
		Content: "body", CreatedAt: base, UpdatedAt: base,
	}
	second := models.BlogPost{
		ID: id.RecordID(uuid.New()), Title: "Second", Author: "Kofi", Category: "news",
		Content: "body", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
	}
	s.Require().NoError(s.store.CreateBlogPost(ctx, first))
	s.Require().NoError(s.store.CreateBlogPost(ctx, second))

	got, err := s.store.ListBlogPosts(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("Second", got[0].Title)

	s.Require().NoError(s.store.DeleteBlogPost(ctx, first.ID))
	_, err = s.store.GetBlogPost(ctx, first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestAdminUsers() {
	ctx := context.Background()
	admin := models.AdminUser{
		ID:        id.UserID(uuid.New()),
		Email:     "admin@example.com",
		CreatedAt: time.Now(),
	}

	s.Run("unknown users are not admins", func() {
		isAdmin, err := s.store.IsAdminUser(ctx, admin.ID)
		s.Require().NoError(err)
		s.False(isAdmin)
	})

	s.Run("marked users are admins and listed", func() {
		s.Require().NoError(s.store.PutAdminUser(ctx, admin))

		isAdmin, err := s.store.IsAdminUser(ctx, admin.ID)
		s.Require().NoError(err)
		s.True(isAdmin)

		list, err := s.store.ListAdminUsers(ctx)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(admin.Email, list[0].Email)
	})
}
