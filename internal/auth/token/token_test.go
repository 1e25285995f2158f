package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatecentre/internal/auth/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

func newSession(expiresIn time.Duration) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:        id.SessionID(uuid.New()),
		UserID:    id.UserID(uuid.New()),
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func TestSignAndParseRoundTrip(t *testing.T) {
	signer := NewSigner("test-key")
	session := newSession(time.Hour)

	tok, err := signer.Sign(session)
	require.NoError(t, err)

	sid, uid, err := signer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, session.ID, sid)
	assert.Equal(t, session.UserID, uid)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	signer := NewSigner("test-key")
	session := newSession(-time.Minute)

	tok, err := signer.Sign(session)
	require.NoError(t, err)

	_, _, err = signer.Parse(tok)
	require.ErrorIs(t, err, sentinel.ErrExpired)
}

func TestParseRejectsWrongKey(t *testing.T) {
	signer := NewSigner("test-key")
	other := NewSigner("other-key")
	session := newSession(time.Hour)

	tok, err := signer.Sign(session)
	require.NoError(t, err)

	_, _, err = other.Parse(tok)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestParseRejectsGarbage(t *testing.T) {
	signer := NewSigner("test-key")
	_, _, err := signer.Parse("not-a-token")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
