// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

// Package fetch downloads archive resources with bounded retries.
//
// One Fetcher is shared by the sync and retrieval engines so that every
// request, from every worker, goes through the same rate limiter and
// circuit breaker:
//
//	f := fetch.New(cfg.Archive)
//	body, err := f.Fetch(ctx, url)
//	if errors.Is(err, fetch.ErrFetchFailed) {
//	    // log and move on to the next period or document
//	}
package fetch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"github.com/tomtom215/filingsync/internal/config"
	"github.com/tomtom215/filingsync/internal/logging"
	"github.com/tomtom215/filingsync/internal/metrics"
)

// Fetcher performs GETs against the archive.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxAttempts  int
	retryDelay   time.Duration
	maxBodyBytes int64
	limiter      *rate.Limiter
	breaker      *breaker
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. Its Timeout is left as given.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithSleep replaces the inter-attempt wait. Tests use it to observe delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithLimiter replaces the shared rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// New builds a Fetcher from archive configuration.
func New(cfg config.ArchiveConfig, opts ...Option) *Fetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	f := &Fetcher{
		client:       &http.Client{Timeout: cfg.RequestTimeout},
		userAgent:    cfg.UserAgent,
		maxAttempts:  maxAttempts,
		retryDelay:   cfg.RetryDelay,
		maxBodyBytes: cfg.MaxBodyBytes,
		limiter:      rate.NewLimiter(limit, burst),
		breaker:      newBreaker("archive", cfg.CircuitBreaker),
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BreakerState reports the circuit breaker state for health output.
func (f *Fetcher) BreakerState() string {
	return f.breaker.State()
}

// Fetch GETs rawURL and returns the decoded body. Transport errors, non-2xx
// responses and decode errors are retried up to the configured attempt count
// with a fixed delay. The terminal failure is a *FetchError. Cancellation of
// ctx returns ctx.Err() immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	kind := kindOf(rawURL)
	attempts := make([]Attempt, 0, f.maxAttempts)

	for n := 1; n <= f.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, attempt := f.attempt(ctx, n, rawURL)
		attempts = append(attempts, attempt)
		if attempt.Err == nil {
			metrics.RecordFetchAttempt(kind, metrics.FetchSuccess, attempt.Duration)
			return body, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		retriesLeft := f.maxAttempts - n
		if retriesLeft == 0 {
			metrics.RecordFetchAttempt(kind, metrics.FetchFailure, attempt.Duration)
			break
		}
		metrics.RecordFetchAttempt(kind, metrics.FetchRetry, attempt.Duration)
		logging.Ctx(ctx).Warn().Err(attempt.Err).
			Str("url", rawURL).
			Int("attempt", n).
			Int("status", attempt.StatusCode).
			Int("retries_left", retriesLeft).
			Dur("delay", f.retryDelay).
			Msg("Fetch attempt failed, retrying")

		if err := f.sleep(ctx, f.retryDelay); err != nil {
			return nil, err
		}
	}

	fetchErr := newFetchError(rawURL, attempts)
	logging.Ctx(ctx).Error().Err(fetchErr.Last().Err).
		Str("url", rawURL).
		Int("attempts", len(attempts)).
		Msg("Fetch failed")
	return nil, fetchErr
}

// attempt performs one rate-limited, breaker-guarded GET.
func (f *Fetcher) attempt(ctx context.Context, n int, rawURL string) ([]byte, Attempt) {
	start := time.Now()
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, Attempt{Number: n, Err: fmt.Errorf("rate limiter: %w", err), Duration: time.Since(start)}
	}

	body, err := f.breaker.execute(func() ([]byte, error) {
		return f.do(ctx, rawURL)
	})

	a := Attempt{Number: n, Err: err, Duration: time.Since(start)}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		a.StatusCode = statusErr.StatusCode
	} else if err == nil {
		a.StatusCode = http.StatusOK
	}
	return body, a
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	// Setting Accept-Encoding disables net/http's transparent decoding, so gzip is handled below.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	br := bufio.NewReader(resp.Body)
	var reader io.Reader = br
	if isGzip(resp.Header, br) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	return readLimited(reader, f.maxBodyBytes)
}

// gzipMagic opens every gzip stream. Archive mirrors sometimes serve
// compressed indexes without a Content-Encoding header.
var gzipMagic = []byte{0x1f, 0x8b}

func isGzip(h http.Header, br *bufio.Reader) bool {
	if strings.EqualFold(strings.TrimSpace(h.Get("Content-Encoding")), "gzip") {
		return true
	}
	head, _ := br.Peek(len(gzipMagic))
	return bytes.Equal(head, gzipMagic)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		return body, nil
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return body, nil
}

func kindOf(rawURL string) string {
	if strings.HasSuffix(rawURL, ".idx") {
		return "index"
	}
	return "document"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
