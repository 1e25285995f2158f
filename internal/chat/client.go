// Package chat forwards visitor questions to a generative-language
// API, with per-key circuit breaking and prompt augmentation from the
// content store.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"climatecentre/internal/platform/config"
	dErrors "climatecentre/pkg/domain-errors"
	"climatecentre/pkg/platform/circuit"
)

// Client talks to a generateContent-style endpoint. Keys are tried in
// order; a key whose breaker is open is skipped until it recovers.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *slog.Logger
	keys    []apiKey
}

type apiKey struct {
	value   string
	breaker *circuit.Breaker
}

func NewClient(cfg config.ChatConfig, logger *slog.Logger) *Client {
	keys := make([]apiKey, 0, len(cfg.APIKeys))
	for i, value := range cfg.APIKeys {
		keys = append(keys, apiKey{
			value:   value,
			breaker: circuit.New(fmt.Sprintf("chat-key-%d", i), circuit.WithFailureThreshold(3)),
		})
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		keys:    keys,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
	// Conservative defaults; the upstream rejects wildly long outputs anyway.
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Generate sends prompt and returns the first candidate's text. Every
// configured key is tried before giving up.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.keys) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "no chat API keys configured")
	}

	var lastErr error
	attempted := 0
	for i := range c.keys {
		key := &c.keys[i]
		if key.breaker.IsOpen() {
			continue
		}
		attempted++

		text, err := c.generateWithKey(ctx, key.value, prompt)
		if err != nil {
			if _, change := key.breaker.RecordFailure(); change.Opened {
				c.logger.WarnContext(ctx, "chat API key circuit opened", "key", key.breaker.Name())
			}
			lastErr = err
			continue
		}
		if _, change := key.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "chat API key circuit closed", "key", key.breaker.Name())
		}
		return text, nil
	}

	// All breakers open: force one attempt on the first key so an
	// upstream recovery is eventually noticed.
	if attempted == 0 {
		key := &c.keys[0]
		text, err := c.generateWithKey(ctx, key.value, prompt)
		if err != nil {
			key.breaker.RecordFailure()
			return "", dErrors.Wrap(dErrors.CodeUnavailable, "chat upstream unavailable", err)
		}
		key.breaker.RecordSuccess()
		return text, nil
	}

	return "", dErrors.Wrap(dErrors.CodeUnavailable, "chat upstream unavailable", lastErr)
}

func (c *Client) generateWithKey(ctx context.Context, key, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1024,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat upstream returned %d", resp.StatusCode)
	}

	return extractText(raw)
}

// extractText unwraps candidates[0].content.parts[0].text. The shape
// is provider-defined and not under our control, so every level is
// checked.
func extractText(raw []byte) (string, error) {
	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("chat response missing candidates")
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", fmt.Errorf("chat response empty")
	}
	return text, nil
}
