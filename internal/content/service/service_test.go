package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"climatecentre/internal/content/models"
	"climatecentre/internal/content/store"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
)

type ContentServiceSuite struct {
	suite.Suite
	store *store.InMemoryStore
	svc   *Service
	clock time.Time
}

func (s *ContentServiceSuite) SetupTest() {
	s.store = store.New()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	s.svc = New(s.store, logger)
	s.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time {
		s.clock = s.clock.Add(time.Second)
		return s.clock
	}
}

func TestContentServiceSuite(t *testing.T) {
	suite.Run(t, new(ContentServiceSuite))
}

func (s *ContentServiceSuite) TestArticles() {
	ctx := context.Background()

	s.Run("create validates required fields", func() {
		_, err := s.svc.CreateArticle(ctx, ArticleInput{Category: "weather", Content: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.svc.CreateArticle(ctx, ArticleInput{Title: "t", Content: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.svc.CreateArticle(ctx, ArticleInput{Title: "t", Category: "weather"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("create rejects a relative source url", func() {
		_, err := s.svc.CreateArticle(ctx, ArticleInput{
			Title: "t", Category: "weather", Content: "x", SourceURL: "not-a-url",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("public reads render markdown to html", func() {
		created, err := s.svc.CreateArticle(ctx, ArticleInput{
			Title: "Rainfall", Category: "weather", Content: "# Rainfall\n\nHeavy season ahead.",
		})
		s.Require().NoError(err)

		view, err := s.svc.GetArticle(ctx, created.ID)
		s.Require().NoError(err)
		s.Contains(view.ContentHTML, "<h1>Rainfall</h1>")
		s.Contains(view.ContentHTML, "<p>Heavy season ahead.</p>")
	})

	s.Run("list filters by category, newest first", func() {
		_, err := s.svc.CreateArticle(ctx, ArticleInput{Title: "Old farming", Category: "farming", Content: "a"})
		s.Require().NoError(err)
		_, err = s.svc.CreateArticle(ctx, ArticleInput{Title: "New farming", Category: "farming", Content: "b"})
		s.Require().NoError(err)

		views, err := s.svc.ListArticles(ctx, "farming")
		s.Require().NoError(err)
		s.Require().Len(views, 2)
		s.Equal("New farming", views[0].Title)
	})

	s.Run("update bumps last_updated and keeps created_at", func() {
		created, err := s.svc.CreateArticle(ctx, ArticleInput{Title: "t", Category: "weather", Content: "x"})
		s.Require().NoError(err)

		updated, err := s.svc.UpdateArticle(ctx, created.ID, ArticleInput{
			Title: "t2", Category: "weather", Content: "y",
		})
		s.Require().NoError(err)
		s.Equal(created.CreatedAt, updated.CreatedAt)
		s.True(updated.LastUpdated.After(created.LastUpdated))
	})

	s.Run("missing records map to not found", func() {
		ghost := id.RecordID(uuid.New())
		_, err := s.svc.GetArticle(ctx, ghost)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.True(dErrors.HasCode(s.svc.DeleteArticle(ctx, ghost), dErrors.CodeNotFound))
	})
}

func (s *ContentServiceSuite) TestBlogPosts() {
	ctx := context.Background()

	s.Run("create requires an author", func() {
		_, err := s.svc.CreateBlogPost(ctx, BlogPostInput{Title: "t", Category: "news", Content: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("round-trip with rendered body", func() {
		created, err := s.svc.CreateBlogPost(ctx, BlogPostInput{
			Title: "Launch", Author: "Ama", Category: "news", Content: "*soft* launch",
		})
		s.Require().NoError(err)

		view, err := s.svc.GetBlogPost(ctx, created.ID)
		s.Require().NoError(err)
		s.Contains(view.ContentHTML, "<em>soft</em>")
	})
}

func (s *ContentServiceSuite) TestGalleryAndDataSources() {
	ctx := context.Background()

	s.Run("gallery item needs an image url", func() {
		_, err := s.svc.CreateGalleryItem(ctx, GalleryItemInput{Title: "Flood"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("data source needs an absolute url", func() {
		_, err := s.svc.CreateDataSource(ctx, DataSourceInput{
			Name: "GMet", Category: "weather", URL: "/relative",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("data source round-trip", func() {
		created, err := s.svc.CreateDataSource(ctx, DataSourceInput{
			Name: "GMet", Category: "weather", URL: "https://www.meteo.gov.gh",
		})
		s.Require().NoError(err)

		sources, err := s.svc.ListDataSources(ctx)
		s.Require().NoError(err)
		s.Require().Len(sources, 1)
		s.Equal(created.ID, sources[0].ID)
		s.Nil(sources[0].LastFetched)
	})
}

func (s *ContentServiceSuite) TestIsAdmin() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	s.Run("unmarked users are not admins", func() {
		isAdmin, err := s.svc.IsAdmin(ctx, userID)
		s.Require().NoError(err)
		s.False(isAdmin)
	})

	s.Run("marked users are admins", func() {
		s.Require().NoError(s.store.PutAdminUser(ctx, models.AdminUser{
			ID: userID, Email: "admin@example.com", CreatedAt: time.Now(),
		}))

		isAdmin, err := s.svc.IsAdmin(ctx, userID)
		s.Require().NoError(err)
		s.True(isAdmin)
	})
}
