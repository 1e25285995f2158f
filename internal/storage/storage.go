// Package storage is the object store behind uploaded media: write a
// blob under a path, get back a stable public URL. It is backed by a
// directory served under /media/.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	dErrors "climatecentre/pkg/domain-errors"
)

type FSStore struct {
	dir     string
	baseURL string
	logger  *slog.Logger
}

// NewFS serves objects from dir. baseURL is the externally visible
// prefix public URLs are built from, e.g. "https://example.org/media".
func NewFS(dir, baseURL string, logger *slog.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &FSStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Upload writes data under name and returns the public URL. The write
// goes through a temp file so a concurrent read never sees a partial
// object.
func (s *FSStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	clean, err := sanitize(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "upload failed", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "upload failed", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", dErrors.Wrap(dErrors.CodeInternal, "upload failed", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", dErrors.Wrap(dErrors.CodeInternal, "upload failed", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", dErrors.Wrap(dErrors.CodeInternal, "upload failed", err)
	}

	s.logger.InfoContext(ctx, "object stored", "path", clean, "bytes", len(data))
	return s.PublicURL(clean), nil
}

// PublicURL returns the URL a stored object is reachable at. It does
// not check existence.
func (s *FSStore) PublicURL(name string) string {
	return s.baseURL + "/" + strings.TrimLeft(name, "/")
}

// FileServer serves the stored objects. Mount it under the route that
// matches baseURL's path.
func (s *FSStore) FileServer() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}

// sanitize normalizes an object name to a safe slash-separated path
// inside the store.
func sanitize(name string) (string, error) {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if name == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "object name is required")
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", dErrors.New(dErrors.CodeInvalidInput, "object name is invalid")
	}
	return clean, nil
}
