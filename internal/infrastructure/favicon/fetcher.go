// Package favicon provides icon fetching, decoding and blob storage for the
// touch icon cache.
package favicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bnema/touchicons/internal/application/port"
	"github.com/bnema/touchicons/internal/logging"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxIconBytes = 1 << 20
	DefaultUserAgent    = "touchicons/1.0"

	retryWaitMin = 100 * time.Millisecond
	retryWaitMax = time.Second
)

// ErrIconTooLarge is returned when a response body exceeds the size cap.
var ErrIconTooLarge = errors.New("icon response too large")

// FetcherConfig configures a Fetcher. Zero values use the defaults.
type FetcherConfig struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// Fetcher downloads icons over HTTP(S). Requests carry no cookies or
// credentials and are retried once, only when the transport fails.
type Fetcher struct {
	client    *retryablehttp.Client
	maxBytes  int64
	userAgent string
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxIconBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.Logger = nil // Disable logging
	client.HTTPClient.Timeout = cfg.Timeout
	client.HTTPClient.Jar = nil
	client.CheckRetry = retryOnTransportError
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Fetcher{
		client:    client,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// retryOnTransportError retries when no response arrived at all, which
// covers network changes and reset connections. HTTP error statuses are
// final.
func retryOnTransportError(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// Fetch downloads rawURL. A non-200 status yields nil bytes and a nil error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	log := logging.FromContext(ctx)

	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid icon url %q", rawURL)
	}
	parsed.User = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create icon request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", rawURL).Msg("icon request failed")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("url", rawURL).Msg("icon server returned non-OK status")
		return nil, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read icon response: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrIconTooLarge, f.maxBytes)
	}

	log.Debug().Str("url", rawURL).Int("bytes", len(data)).Msg("icon fetched")
	return data, nil
}

var _ port.IconFetcher = (*Fetcher)(nil)
