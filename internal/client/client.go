// Package client is the HTTP API client used by climatectl. It
// satisfies the session.Provider contract so the CLI can run the same
// session manager the server-side tooling uses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"climatecentre/internal/session"
	id "climatecentre/pkg/domain"
	dErrors "climatecentre/pkg/domain-errors"
)

const requestTimeout = 15 * time.Second

// Client talks to a climate centre server and keeps the bearer token
// on disk between invocations.
type Client struct {
	baseURL   string
	tokenPath string
	http      *http.Client
	logger    *slog.Logger

	mu      sync.Mutex
	token   string
	subs    map[int]func(*session.Session)
	nextSub int
}

func New(baseURL, tokenPath string, logger *slog.Logger) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokenPath: tokenPath,
		http:      &http.Client{Timeout: requestTimeout},
		logger:    logger,
		subs:      make(map[int]func(*session.Session)),
	}
	if data, err := os.ReadFile(tokenPath); err == nil {
		c.token = strings.TrimSpace(string(data))
	}
	return c
}

// apiSession mirrors the server's session payload.
type apiSession struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *Client) Subscribe(fn func(*session.Session)) (func(), error) {
	c.mu.Lock()
	sub := c.nextSub
	c.nextSub++
	c.subs[sub] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, sub)
		c.mu.Unlock()
	}, nil
}

// CurrentSession validates the stored token against the server. A
// rejected token is forgotten and reported as "signed out".
func (c *Client) CurrentSession(ctx context.Context) (*session.Session, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil, nil
	}

	var payload apiSession
	status, err := c.do(ctx, http.MethodGet, "/auth/session", nil, token, &payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.ClearLocalState()
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("unexpected status %d from session check", status))
	}
	return c.toSession(token, payload)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var payload apiSession
	status, err := c.do(ctx, http.MethodPost, "/auth/sign-in", body, "", &payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, signInError(status)
	}

	sess, err := c.toSession(payload.Token, payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = payload.Token
	c.mu.Unlock()
	if err := c.saveToken(payload.Token); err != nil {
		c.logger.WarnContext(ctx, "token not persisted, sign-in lasts this run only", "error", err)
	}
	c.emit(sess)
	return sess, nil
}

// SignOut revokes the stored session at the server and forgets the
// token either way.
func (c *Client) SignOut(ctx context.Context, global bool) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil
	}
	defer func() {
		c.ClearLocalState()
		c.emit(nil)
	}()

	scope := "global"
	if !global {
		scope = "local"
	}
	status, err := c.do(ctx, http.MethodPost, "/auth/sign-out", map[string]string{"scope": scope}, token, nil)
	if err != nil {
		return err
	}
	// An already-dead token is as signed out as it gets.
	if status != http.StatusNoContent && status != http.StatusUnauthorized {
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("unexpected status %d from sign-out", status))
	}
	return nil
}

// ClearLocalState forgets the token in memory and on disk without
// touching the server.
func (c *Client) ClearLocalState() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if c.tokenPath != "" {
		_ = os.Remove(c.tokenPath)
	}
}

// IsAdmin reports whether the given user holds admin rights, judged by
// the server. Any mismatch or failure reads as "not an admin".
func (c *Client) IsAdmin(ctx context.Context, userID id.UserID) (bool, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return false, nil
	}

	var payload apiSession
	status, err := c.do(ctx, http.MethodGet, "/auth/session", nil, token, &payload)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, nil
	}
	if payload.User.ID != userID.String() {
		return false, nil
	}
	return payload.IsAdmin, nil
}

// Token exposes the stored bearer for plain API calls outside the
// session manager.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Do performs an authenticated API request and decodes the response
// into out when it is non-nil. Error envelopes become domain errors.
func (c *Client) Do(ctx context.Context, method, path string, body any, out any) error {
	status, err := c.do(ctx, method, path, body, c.Token(), out)
	if err != nil {
		return err
	}
	if status >= 400 {
		return requestError(status)
	}
	return nil
}

func requestError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, "sign in required")
	case http.StatusForbidden:
		return dErrors.New(dErrors.CodeForbidden, "admin access required")
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, "not found")
	default:
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("server answered %d", status))
	}
}

func (c *Client) toSession(token string, payload apiSession) (*session.Session, error) {
	userID, err := id.ParseUserID(payload.User.ID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "malformed user id in server response", err)
	}
	return &session.Session{
		Token:     token,
		User:      session.User{ID: userID, Email: payload.User.Email},
		ExpiresAt: payload.ExpiresAt,
	}, nil
}

// do runs one request. Non-2xx statuses are returned to the caller;
// only transport and decode failures are errors.
func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, dErrors.Wrap(dErrors.CodeInternal, "encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, dErrors.Wrap(dErrors.CodeUnavailable, "server unreachable", err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
			return resp.StatusCode, dErrors.Wrap(dErrors.CodeUnavailable, "malformed server response", err)
		}
	}
	return resp.StatusCode, nil
}

func signInError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	case http.StatusBadRequest:
		return dErrors.New(dErrors.CodeInvalidInput, "invalid sign-in request")
	default:
		return dErrors.New(dErrors.CodeUnavailable, fmt.Sprintf("server answered %d", status))
	}
}

func (c *Client) saveToken(token string) error {
	if c.tokenPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.tokenPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.tokenPath, []byte(token), 0o600)
}

func (c *Client) emit(sess *session.Session) {
	c.mu.Lock()
	fns := make([]func(*session.Session), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(sess)
	}
}
