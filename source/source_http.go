package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type SourceHTTPConfig struct {
	URL string

	// Timeout bounds a single GET. Zero leaves the request bounded only by ctx.
	Timeout time.Duration
}

func (c *SourceHTTPConfig) validate() {
	if strings.TrimSpace(c.URL) == "" {
		panic("archive url is required")
	}
	if c.Timeout < 0 {
		panic("timeout must be non-negative")
	}
}

var DefaultSourceHTTPConfig = SourceHTTPConfig{
	URL: DefaultArchiveURL,
}

type httpAPI interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceHTTP downloads the archive with a plain GET (no headers, no auth).
type SourceHTTP struct {
	cfg    SourceHTTPConfig
	client httpAPI
}

func NewHTTP(client httpAPI) *SourceHTTP {
	return NewHTTPWithConfig(client, DefaultSourceHTTPConfig)
}

func NewHTTPWithConfig(client httpAPI, cfg SourceHTTPConfig) *SourceHTTP {
	if client == nil {
		panic("http client is required")
	}
	cfg.validate()
	return &SourceHTTP{cfg: cfg, client: client}
}

// URL returns the archive location this source fetches.
func (s *SourceHTTP) URL() string { return s.cfg.URL }

func (s *SourceHTTP) Fetch(ctx context.Context) (Archive, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return Archive{}, fmt.Errorf("build request url=%q: %w", s.cfg.URL, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Archive{}, fmt.Errorf("http get %s: %w", s.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused by the next attempt.
		_, _ = io.Copy(io.Discard, resp.Body)
		return Archive{}, &HTTPError{URL: s.cfg.URL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Archive{}, fmt.Errorf("read body url=%q: %w", s.cfg.URL, err)
	}

	return Archive{URL: s.cfg.URL, StatusCode: resp.StatusCode, Data: data}, nil
}
