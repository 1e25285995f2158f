package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"climatecentre/internal/auth/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix  = "cic:session:"
	userIndexPrefix   = "cic:user-sessions:"
	userIndexLifetime = 31 * 24 * time.Hour
)

// RedisStore persists sessions in Redis with per-session TTL. A per-user set
// indexes session IDs so global sign-out can revoke them all.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string { return sessionKeyPrefix + sessionID.String() }
func userIndexKey(userID id.UserID) string     { return userIndexPrefix + userID.String() }

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), payload, ttl)
	pipe.SAdd(ctx, userIndexKey(session.UserID), session.ID.String())
	pipe.Expire(ctx, userIndexKey(session.UserID), userIndexLifetime)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) Revoke(ctx context.Context, sessionID id.SessionID, now time.Time) error {
	session, err := s.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.RevokedAt != nil {
		return nil
	}
	t := now
	session.RevokedAt = &t
	return s.rewrite(ctx, session)
}

func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID id.UserID, now time.Time) (int, error) {
	members, err := s.client.SMembers(ctx, userIndexKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	revoked := 0
	for _, member := range members {
		sessionID, err := id.ParseSessionID(member)
		if err != nil {
			continue
		}
		session, err := s.FindByID(ctx, sessionID)
		if errors.Is(err, sentinel.ErrNotFound) {
			// Expired out of Redis; drop the stale index entry.
			s.client.SRem(ctx, userIndexKey(userID), member)
			continue
		}
		if err != nil {
			return revoked, err
		}
		if session.RevokedAt != nil {
			continue
		}
		t := now
		session.RevokedAt = &t
		if err := s.rewrite(ctx, session); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

// rewrite stores the updated session without extending its TTL past the
// original expiry.
func (s *RedisStore) rewrite(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// Let the expired key age out on its own.
		return nil
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}
