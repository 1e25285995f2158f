package ratelimit

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatecentre/pkg/platform/middleware/metadata"
)

func TestSlidingWindow(t *testing.T) {
	newLimiter := func(limit int, window time.Duration) (*SlidingWindow, *time.Time) {
		l := NewSlidingWindow(limit, window)
		clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		l.now = func() time.Time { return clock }
		return l, &clock
	}

	t.Run("admits up to the limit, then rejects", func(t *testing.T) {
		l, _ := newLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			require.True(t, l.Allow("1.2.3.4").Allowed, i)
		}
		result := l.Allow("1.2.3.4")
		assert.False(t, result.Allowed)
		assert.Zero(t, result.Remaining)
	})

	t.Run("keys are independent", func(t *testing.T) {
		l, _ := newLimiter(1, time.Minute)

		require.True(t, l.Allow("1.2.3.4").Allowed)
		assert.False(t, l.Allow("1.2.3.4").Allowed)
		assert.True(t, l.Allow("5.6.7.8").Allowed)
	})

	t.Run("entries age out as the window slides", func(t *testing.T) {
		l, clock := newLimiter(2, time.Minute)

		require.True(t, l.Allow("k").Allowed)
		*clock = clock.Add(30 * time.Second)
		require.True(t, l.Allow("k").Allowed)
		assert.False(t, l.Allow("k").Allowed)

		*clock = clock.Add(31 * time.Second)
		assert.True(t, l.Allow("k").Allowed, "first entry fell out of the window")
	})

	t.Run("prune drops idle keys", func(t *testing.T) {
		l, clock := newLimiter(1, time.Minute)
		l.Allow("idle")
		*clock = clock.Add(2 * time.Minute)

		l.Prune()
		l.mu.Lock()
		defer l.mu.Unlock()
		assert.Empty(t, l.buckets)
	})
}

func TestMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	limiter := NewSlidingWindow(1, time.Minute)
	handler := Middleware(limiter, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req = req.WithContext(metadata.WithClientMetadata(req.Context(), ip, "test-agent"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send("203.0.113.7")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := send("203.0.113.7")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "rate_limited")

	other := send("198.51.100.9")
	assert.Equal(t, http.StatusOK, other.Code)
}
