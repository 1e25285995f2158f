//go:build integration

package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"climatecentre/internal/auth/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
	"climatecentre/pkg/testutil/containers"
)

// Same contract as the miniredis tests, exercised against a real
// server for the commands miniredis only approximates.
func TestRedisStoreAgainstServer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	store := NewRedis(rc.Client)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		sess := redisSession(id.UserID(uuid.New()), time.Hour)
		require.NoError(t, store.Create(ctx, sess))

		found, err := store.FindByID(ctx, sess.ID)
		require.NoError(t, err)
		require.Equal(t, sess.UserID, found.UserID)
	})

	t.Run("missing session", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		_, err := store.FindByID(ctx, id.SessionID(uuid.New()))
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("revoke all for user", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))
		userID := id.UserID(uuid.New())
		first := redisSession(userID, time.Hour)
		second := redisSession(userID, time.Hour)
		other := redisSession(id.UserID(uuid.New()), time.Hour)
		for _, s := range []*models.Session{first, second, other} {
			require.NoError(t, store.Create(ctx, s))
		}

		revoked, err := store.RevokeAllForUser(ctx, userID, time.Now())
		require.NoError(t, err)
		require.Equal(t, 2, revoked)

		untouched, err := store.FindByID(ctx, other.ID)
		require.NoError(t, err)
		require.Nil(t, untouched.RevokedAt)
	})
}
