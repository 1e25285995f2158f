// Package token signs and parses the bearer tokens that wrap session IDs.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"climatecentre/internal/auth/models"
	id "climatecentre/pkg/domain"
	"climatecentre/pkg/platform/sentinel"
)

// Signer issues and validates HS256 session tokens.
type Signer struct {
	key []byte
}

// NewSigner constructs a Signer from the configured signing key.
func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Sign produces a bearer token for the session, expiring with it.
func (s *Signer) Sign(session *models.Session) (string, error) {
	claims := sessionClaims{
		SessionID: session.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse validates a bearer token and returns the session and user IDs it
// carries. Expired tokens return sentinel.ErrExpired; any other validation
// failure returns sentinel.ErrNotFound so callers treat the token as absent.
func (s *Signer) Parse(tokenString string) (id.SessionID, id.UserID, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.SessionID{}, id.UserID{}, sentinel.ErrExpired
		}
		return id.SessionID{}, id.UserID{}, sentinel.ErrNotFound
	}

	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return id.SessionID{}, id.UserID{}, sentinel.ErrNotFound
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return id.SessionID{}, id.UserID{}, sentinel.ErrNotFound
	}
	return sessionID, userID, nil
}
