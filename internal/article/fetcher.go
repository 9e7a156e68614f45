// Package article downloads linked articles and reduces their HTML to plain text.
package article

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBodyBytes = 5 << 20
)

// Fetcher retrieves raw article pages over HTTP.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// NewFetcher creates a Fetcher. The request timeout belongs to the HTTP client.
func NewFetcher(logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		client:       &http.Client{Timeout: defaultFetchTimeout},
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.With("component", "article_fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch issues a single GET and returns the page body. Non-200 responses and
// transport failures are logged and reported as false; there is no retry.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to build article request", "url", url, "error", err)
		return "", false
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to fetch article", "url", url, "error", err)
		return "", false
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.DebugContext(ctx, "Failed to close article response body", "url", url, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		f.logger.WarnContext(ctx, "Unexpected article response status", "url", url, "status", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to read article body", "url", url, "error", err)
		return "", false
	}

	f.logger.DebugContext(ctx, "Fetched article", "url", url, "bytes", len(body))
	return string(body), true
}
