// Package assets fetches raw model bytes by name.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a source has no asset with the given name.
var ErrNotFound = errors.New("asset not found")

// Request names one fetch of an asset.
type Request struct {
	Name string
	// CacheToken is unique per request. Sources that sit behind caches put
	// it in the request so every fetch reaches the origin.
	CacheToken string
}

// Source fetches asset bytes. Errors are treated as transient by callers.
type Source interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// HTTPSource fetches assets relative to a base URL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource creates an HTTP source for baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// URL returns the request URL for req, including the cache token.
func (s *HTTPSource) URL(req Request) (string, error) {
	u, err := url.Parse(s.BaseURL + "/" + strings.TrimLeft(req.Name, "/"))
	if err != nil {
		return "", fmt.Errorf("asset url: %w", err)
	}
	if req.CacheToken != "" {
		q := u.Query()
		q.Set("v", req.CacheToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Fetch downloads the asset. Intermediary caches are told not to serve a
// stored copy.
func (s *HTTPSource) Fetch(ctx context.Context, req Request) ([]byte, error) {
	target, err := s.URL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", req.Name, err)
	}
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Pragma", "no-cache")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", req.Name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("asset %s: %w", req.Name, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("asset %s: HTTP %d", req.Name, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", req.Name, err)
	}
	return data, nil
}

// DirSource reads assets from a local directory.
type DirSource struct {
	Root string
}

// Fetch reads the named file below Root. The cache token is ignored.
func (s *DirSource) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := filepath.Clean("/" + req.Name)
	data, err := os.ReadFile(filepath.Join(s.Root, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("asset %s: %w", req.Name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", req.Name, err)
	}
	return data, nil
}

// New picks an HTTP source when baseURL is set and a directory source
// otherwise.
func New(baseURL, dir string) Source {
	if baseURL != "" {
		return NewHTTPSource(baseURL)
	}
	return &DirSource{Root: dir}
}
