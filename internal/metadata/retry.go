package metadata

import (
	"context"
	"errors"
	"time"

	"genretag/internal/logger"
)

const defaultRetryAfter = time.Second

type rateLimitRetry struct {
	inner      Provider
	maxRetries int
	maxWait    time.Duration
	logger     *logger.Logger
}

// WithRateLimitRetry wraps p so that a RateLimitError is answered by sleeping
// for the requested interval, capped at maxWait, and calling p again. At most
// maxRetries extra calls are made; after that the last error is returned.
func WithRateLimitRetry(p Provider, maxRetries int, maxWait time.Duration, log *logger.Logger) Provider {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &rateLimitRetry{inner: p, maxRetries: maxRetries, maxWait: maxWait, logger: log}
}

func (r *rateLimitRetry) Name() string { return r.inner.Name() }

func (r *rateLimitRetry) Lookup(ctx context.Context, key TrackKey) (string, error) {
	for attempt := 0; ; attempt++ {
		genre, err := r.inner.Lookup(ctx, key)

		var rl *RateLimitError
		if !errors.As(err, &rl) || attempt >= r.maxRetries {
			return genre, err
		}

		wait := rl.RetryAfter
		if wait <= 0 {
			wait = defaultRetryAfter
		}
		if r.maxWait > 0 && wait > r.maxWait {
			wait = r.maxWait
		}
		r.logger.Warn("[%s] Rate limiting, sleeping for %s", r.inner.Name(), wait)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}
