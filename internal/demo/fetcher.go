// Package demo installs the bundled demo track pack through the public
// track API, fetching assets over the network.
package demo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// ErrAssetTooLarge is returned when a demo asset exceeds the fetch limit.
var ErrAssetTooLarge = errors.New("demo asset exceeds size limit")

// Asset size limits per device profile, applied before consumption.
const (
	ConstrainedAssetLimit   = 8 << 20  // 8 MiB
	UnconstrainedAssetLimit = 32 << 20 // 32 MiB
)

// Fetcher retrieves a demo asset payload by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RetryConfig configures retry behavior for transient fetch errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.25,
	}
}

// HTTPFetcher fetches assets over HTTP, bounded by a maximum asset size
// and retrying transient failures with exponential backoff.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	config   *RetryConfig
}

// NewHTTPFetcher creates a fetcher that refuses payloads larger than
// maxBytes.
func NewHTTPFetcher(maxBytes int64, cfg *RetryConfig) *HTTPFetcher {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 60 * time.Second},
		maxBytes: maxBytes,
		config:   cfg,
	}
}

// Fetch downloads one asset, retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, f.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		payload, err := f.fetchOnce(ctx, url)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &fetchError{Status: resp.StatusCode, URL: url}
	}
	if resp.ContentLength > f.maxBytes {
		return nil, ErrAssetTooLarge
	}

	// Read one byte past the limit to distinguish "exactly at" from "over".
	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > f.maxBytes {
		return nil, ErrAssetTooLarge
	}
	return payload, nil
}

// fetchError reports a non-200 response.
type fetchError struct {
	Status int
	URL    string
}

func (e *fetchError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// isTransient returns true for errors worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAssetTooLarge) {
		return false
	}
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.Status >= 500 || fe.Status == http.StatusTooManyRequests
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true // network errors are transient
}

// backoff computes the delay for the given attempt with jitter.
func (f *HTTPFetcher) backoff(attempt int) time.Duration {
	base := float64(f.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(f.config.MaxBackoff) {
		base = float64(f.config.MaxBackoff)
	}
	jitter := base * f.config.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
