package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/edgeflare/pgrest/pkg/metrics"
)

// RetryConfig controls how requests rejected with 429 are retried.
type RetryConfig struct {
	// MaxAttempts counts the first attempt. Values below 1 mean 1.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles after
	// every further attempt.
	BaseDelay time.Duration
	// MaxDelay caps the computed wait. A Retry-After header is not capped.
	MaxDelay time.Duration
	// Timer replaces the wall clock, mainly in tests.
	Timer backoff.Timer
	// Notify is called before each wait.
	Notify backoff.Notify
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = max(def.MaxDelay, cfg.BaseDelay)
	}
	return cfg
}

// Retry wraps fn so that a 429 response is retried with exponential backoff
// and no jitter, up to cfg.MaxAttempts attempts in total. Any other error,
// including other non-2xx statuses and transport failures, is returned at
// once. Cancelling ctx aborts a pending wait.
func Retry(fn RequestFunc, cfg RetryConfig) RequestFunc {
	cfg = cfg.withDefaults()

	return func(ctx context.Context, req Request) (*Response, error) {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = cfg.BaseDelay
		exp.Multiplier = 2
		exp.RandomizationFactor = 0
		exp.MaxInterval = cfg.MaxDelay
		exp.MaxElapsedTime = 0
		exp.Reset()

		b := &retryAfterBackOff{BackOff: exp}
		policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxAttempts-1)), ctx)

		var (
			resp    *Response
			attempt int
		)
		operation := func() error {
			attempt++
			r, err := fn(withAttempt(ctx, attempt), req)
			resp = r
			if err == nil {
				return nil
			}

			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
				b.retryAfter = retryAfter(apiErr.Header)
				return err
			}
			return backoff.Permanent(err)
		}

		notify := func(err error, next time.Duration) {
			metrics.HTTPRetries.WithLabelValues(req.Method).Inc()
			if cfg.Notify != nil {
				cfg.Notify(err, next)
			}
		}

		err := backoff.RetryNotifyWithTimer(operation, policy, notify, cfg.Timer)
		return resp, err
	}
}

// retryAfterBackOff substitutes the server's Retry-After for the next
// computed delay, once.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.retryAfter <= 0 {
		return next
	}
	d := b.retryAfter
	b.retryAfter = 0
	return d
}

func (b *retryAfterBackOff) Reset() {
	b.retryAfter = 0
	b.BackOff.Reset()
}

// retryAfter parses a Retry-After header given in seconds. HTTP dates are
// ignored.
func retryAfter(header http.Header) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
