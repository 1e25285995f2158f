package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contentservice "climatecentre/internal/content/service"
	"climatecentre/internal/content/store"
	"climatecentre/internal/platform/config"
)

type fakeGenerator struct {
	lastPrompt string
	reply      string
	err        error
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newKnowledge(t *testing.T) *contentservice.Service {
	t.Helper()
	svc := contentservice.New(store.New(), testLogger())
	_, err := svc.CreateArticle(context.Background(), contentservice.ArticleInput{
		Title: "Coastal erosion", Category: "adaptation", Content: "Keta's shoreline retreats yearly.",
	})
	require.NoError(t, err)
	_, err = svc.CreateDataSource(context.Background(), contentservice.DataSourceInput{
		Name: "GMet", Category: "weather", URL: "https://www.meteo.gov.gh",
	})
	require.NoError(t, err)
	return svc
}

func chatConfig(useContent, useData bool) config.ChatConfig {
	return config.ChatConfig{
		SystemPrompt:      "You are ClimateWise.",
		UseClimateContent: useContent,
		UseExternalData:   useData,
	}
}

func TestAsk(t *testing.T) {
	t.Run("prompt layers system prompt, knowledge and question", func(t *testing.T) {
		gen := &fakeGenerator{reply: "answer"}
		svc := NewService(gen, newKnowledge(t), chatConfig(true, true), testLogger())

		reply := svc.Ask(context.Background(), "How hot is Accra?")
		assert.Equal(t, "answer", reply)

		assert.True(t, strings.HasPrefix(gen.lastPrompt, "You are ClimateWise."))
		assert.Contains(t, gen.lastPrompt, "Coastal erosion")
		assert.Contains(t, gen.lastPrompt, "GMet")
		assert.Contains(t, gen.lastPrompt, "Visitor question: How hot is Accra?")
	})

	t.Run("toggles drop their sections", func(t *testing.T) {
		gen := &fakeGenerator{reply: "answer"}
		svc := NewService(gen, newKnowledge(t), chatConfig(false, false), testLogger())

		svc.Ask(context.Background(), "q")
		assert.NotContains(t, gen.lastPrompt, "Coastal erosion")
		assert.NotContains(t, gen.lastPrompt, "GMet")
	})

	t.Run("generation failure degrades to the fallback message", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("upstream down")}
		svc := NewService(gen, newKnowledge(t), chatConfig(true, true), testLogger())

		assert.Equal(t, FallbackMessage, svc.Ask(context.Background(), "q"))
	})
}

func TestChatHandler(t *testing.T) {
	newRouter := func(gen Generator) *chi.Mux {
		svc := NewService(gen, newKnowledge(t), chatConfig(false, false), testLogger())
		r := chi.NewRouter()
		NewHandler(svc, testLogger()).Register(r)
		return r
	}

	post := func(r http.Handler, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("replies to a question", func(t *testing.T) {
		rec := post(newRouter(&fakeGenerator{reply: "30 degrees"}), `{"message":"How hot?"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "30 degrees", got["reply"])
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		rec := post(newRouter(&fakeGenerator{reply: "x"}), `{"message":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream failure still yields a 200 with the fallback", func(t *testing.T) {
		rec := post(newRouter(&fakeGenerator{err: errors.New("down")}), `{"message":"q"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Sorry, I could not answer")
	})
}
