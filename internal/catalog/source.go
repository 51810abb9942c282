package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	userAgent = "spigell/apply-queue"
	// Catalog documents above this size are rejected.
	maxCatalogBytes = 32 << 20
)

// Source yields the raw catalog document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// NewSource picks an HTTP source for http(s) locations and a file source otherwise.
func NewSource(location string) Source {
	location = strings.TrimSpace(location)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location)
	}
	return &FileSource{Path: location}
}

// Load fetches and parses the catalog from src.
func Load(ctx context.Context, src Source) (*Postings, error) {
	if src == nil {
		return nil, fmt.Errorf("catalog source is required")
	}

	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog from %s: %w", src, err)
	}

	return Parse(data)
}

type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	if strings.TrimSpace(s.Path) == "" {
		return nil, fmt.Errorf("catalog file path is empty")
	}
	return os.ReadFile(s.Path)
}

func (s *FileSource) String() string { return s.Path }

type HTTPSource struct {
	URL        string
	HTTPClient *http.Client
	UserAgent  string
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxCatalogBytes {
		return nil, fmt.Errorf("catalog exceeds %d bytes", maxCatalogBytes)
	}
	return data, nil
}

func (s *HTTPSource) String() string { return s.URL }
