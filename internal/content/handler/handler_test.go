package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatecentre/internal/content/service"
	"climatecentre/internal/content/store"
)

func newTestRouter(t *testing.T) (*chi.Mux, *service.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(store.New(), logger)
	h := New(svc, logger)

	r := chi.NewRouter()
	h.Register(r)
	r.Route("/admin", func(r chi.Router) {
		h.RegisterAdmin(r)
	})
	return r, svc
}

func TestPublicReads(t *testing.T) {
	r, svc := newTestRouter(t)

	created, err := svc.CreateArticle(context.Background(), service.ArticleInput{
		Title: "Rainfall", Category: "weather", Content: "# Rainfall",
	})
	require.NoError(t, err)
	_, err = svc.CreateArticle(context.Background(), service.ArticleInput{
		Title: "Maize", Category: "farming", Content: "text",
	})
	require.NoError(t, err)

	t.Run("list articles with category filter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content?category=weather", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "Rainfall", got[0]["title"])
		assert.Contains(t, got[0]["content_html"], "<h1>Rainfall</h1>")
	})

	t.Run("get article by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/content/"+created.ID.String(), nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown and malformed ids both read as not found", func(t *testing.T) {
		for _, path := range []string{
			"/content/6f1b24a2-95df-4c30-9f91-ab8e22a0a3c1",
			"/content/not-a-uuid",
		} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})

	t.Run("empty gallery lists as an empty array", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gallery", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
	})
}

func TestAdminCRUD(t *testing.T) {
	r, _ := newTestRouter(t)

	post := func(t *testing.T, path, body string) *httptest.ResponseRecorder {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("create article", func(t *testing.T) {
		rec := post(t, "/admin/content", `{"title":"T","category":"weather","content":"body"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.NotEmpty(t, got["id"])
	})

	t.Run("create article with missing fields is rejected", func(t *testing.T) {
		rec := post(t, "/admin/content", `{"title":"T"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "invalid_input", got["error"])
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		rec := post(t, "/admin/blog", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update and delete round-trip", func(t *testing.T) {
		rec := post(t, "/admin/data-sources",
			`{"name":"GMet","category":"weather","url":"https://www.meteo.gov.gh"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var created map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
		sourceID := created["id"].(string)

		upd := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/admin/data-sources/"+sourceID,
			strings.NewReader(`{"name":"GMet agency","category":"weather","url":"https://www.meteo.gov.gh"}`))
		r.ServeHTTP(upd, req)
		require.Equal(t, http.StatusOK, upd.Code)

		del := httptest.NewRecorder()
		r.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/admin/data-sources/"+sourceID, nil))
		require.Equal(t, http.StatusNoContent, del.Code)

		again := httptest.NewRecorder()
		r.ServeHTTP(again, httptest.NewRequest(http.MethodDelete, "/admin/data-sources/"+sourceID, nil))
		assert.Equal(t, http.StatusNotFound, again.Code)
	})
}
