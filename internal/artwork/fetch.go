package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "go-spotify-radio-dj/1.0"

// ErrBadURL is returned for artwork URLs that are not absolute http(s) URLs.
var ErrBadURL = errors.New("invalid artwork URL")

// Fetcher downloads artwork images over HTTP.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithMaxBytes sets the largest accepted response body.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewFetcher creates a Fetcher with a 10s timeout and DefaultMaxBytes limit.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and decodes the image at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBadURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching artwork: unexpected status %d", resp.StatusCode)
	}

	img, _, err := Decode(resp.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}
	return img, nil
}
