// Package secfetch provides a rate-limited byte fetcher for SEC EDGAR
// endpoints (C1): a process-wide mutex+timestamp limiter, a fixed operator
// User-Agent, and transient-error retry with fixed backoff. Modeled on the
// teacher's internal/adapters/ingest/github.Client, with token rotation
// dropped since SEC requires one fixed identifying User-Agent, not rotating
// auth tokens
package secfetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	perr "ncsrpipe/internal/platform/errors"
	"ncsrpipe/internal/platform/logger"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMinDelay   = 100 * time.Millisecond
	defaultMaxRetries = 3
)

var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Options configures the Client
type Options struct {
	// UserAgent identifies the operator per SEC's fair access policy
	// (e.g. "Company Name admin@example.com"); required
	UserAgent string

	// MinDelay is the minimum interval enforced between any two requests
	// across all callers, process-wide. Default 100ms (≤10 req/s)
	MinDelay time.Duration

	// Timeout bounds a single HTTP round trip; each retry gets its own
	// budget. Default 30s
	Timeout time.Duration

	// MaxRetries bounds retry attempts on transient errors. Default 3
	MaxRetries int
}

// StatusError is returned when a request exhausts its retries against a
// non-2xx response; it carries the last observed status and a body tail
type StatusError struct {
	Status int
	Body   string
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// Client fetches bytes from SEC endpoints under a shared rate limiter
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger

	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a Client with sane defaults; panics if UserAgent is empty
func NewClient(o Options) *Client {
	if strings.TrimSpace(o.UserAgent) == "" {
		panic("secfetch: UserAgent is required")
	}
	if o.MinDelay <= 0 {
		o.MinDelay = defaultMinDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("secfetch"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// throttle blocks the caller until MinDelay has elapsed since the previous
// request was issued by any caller; the sleep happens while holding the lock
// so concurrent callers serialize rather than thunder through together
func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.opts.MinDelay - c.now().Sub(c.last); wait > 0 {
		c.sleep(wait)
	}
	c.last = c.now()
}

// Fetch retrieves url and returns its body bytes, retrying transient
// failures (connection errors, 5xx, timeouts) up to MaxRetries times with
// fixed 1s/2s/4s backoff
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		c.throttle()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "secfetch new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept-Encoding", "gzip, deflate")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if !c.shouldRetry(attempt) {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "secfetch request failed: %s", url)
			}
			c.log.Warn().Str("url", url).Int("attempt", attempt).Err(err).Msg("secfetch transport error retrying")
			c.sleep(c.backoff(attempt))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_ = drainAndClose(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeNotFound, "secfetch 404: %s", url)

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "secfetch read body failed: %s", url)
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			lastErr = perr.Newf(perr.ErrorCodeUnavailable, "secfetch transient status %d: %s", resp.StatusCode, url)
			if !c.shouldRetry(attempt) {
				body := readSmall(resp.Body)
				_ = resp.Body.Close()
				return nil, &StatusError{Status: resp.StatusCode, Body: body, Err: lastErr}
			}
			c.log.Warn().Str("url", url).Int("status", resp.StatusCode).Int("attempt", attempt).Msg("secfetch transient status retrying")
			_ = drainAndClose(resp.Body)
			c.sleep(c.backoff(attempt))
			continue

		default:
			body := readSmall(resp.Body)
			_ = resp.Body.Close()
			return nil, &StatusError{
				Status: resp.StatusCode,
				Body:   body,
				Err:    perr.Newf(perr.ErrorCodeUnknown, "secfetch unexpected status %d: %s", resp.StatusCode, url),
			}
		}
	}
}

// Size reports a filing's size in megabytes without downloading its body,
// via HEAD's Content-Length, going through the same throttle and retry
// policy as Fetch. The orchestrator uses it to route oversized filings to
// the dead-letter queue before ever fetching their bytes (spec.md §4.8,
// tier=dead_letter "never attempted"). ok is false when the server didn't
// report a Content-Length, in which case the caller must fall back to
// fetching the body and measuring it directly
func (c *Client) Size(ctx context.Context, url string) (mb float64, ok bool, err error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return 0, false, ctx.Err()
		default:
		}

		c.throttle()

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if reqErr != nil {
			return 0, false, perr.Wrapf(reqErr, perr.ErrorCodeUnknown, "secfetch new HEAD request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			lastErr = doErr
			if !c.shouldRetry(attempt) {
				return 0, false, perr.Wrapf(doErr, perr.ErrorCodeUnavailable, "secfetch HEAD failed: %s", url)
			}
			c.log.Warn().Str("url", url).Int("attempt", attempt).Err(doErr).Msg("secfetch HEAD transport error retrying")
			c.sleep(c.backoff(attempt))
			continue
		}
		_ = drainAndClose(resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return 0, false, perr.Newf(perr.ErrorCodeNotFound, "secfetch HEAD 404: %s", url)

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if resp.ContentLength <= 0 {
				return 0, false, nil
			}
			return float64(resp.ContentLength) / (1024 * 1024), true, nil

		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			lastErr = perr.Newf(perr.ErrorCodeUnavailable, "secfetch HEAD transient status %d: %s", resp.StatusCode, url)
			if !c.shouldRetry(attempt) {
				return 0, false, lastErr
			}
			c.log.Warn().Str("url", url).Int("status", resp.StatusCode).Int("attempt", attempt).Msg("secfetch HEAD transient status retrying")
			c.sleep(c.backoff(attempt))
			continue

		default:
			return 0, false, perr.Newf(perr.ErrorCodeUnknown, "secfetch HEAD unexpected status %d: %s", resp.StatusCode, url)
		}
	}
}

func (c *Client) shouldRetry(attempt int) bool { return attempt < c.opts.MaxRetries }

func (c *Client) backoff(attempt int) time.Duration {
	if attempt < len(defaultBackoff) {
		return defaultBackoff[attempt]
	}
	return defaultBackoff[len(defaultBackoff)-1]
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 4096))
	return rc.Close()
}

func readSmall(rc io.ReadCloser) string {
	b, _ := io.ReadAll(io.LimitReader(rc, 2048))
	s := strings.TrimSpace(string(b))
	return strings.ReplaceAll(s, "\n", " ")
}
