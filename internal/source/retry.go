package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Shaizy-S/AutoSentiment/internal/domain"
	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// RetryPolicy is an exponential backoff: attempt k (0-based) waits Base*2^k, capped at Max.
type RetryPolicy struct {
	Retries int
	Base    time.Duration
	Max     time.Duration
}

// DefaultRetryPolicy retries three times starting at 250ms, never waiting more than 4s.
var DefaultRetryPolicy = RetryPolicy{Retries: 3, Base: 250 * time.Millisecond, Max: 4 * time.Second}

// Delay returns the wait before retry number k.
func (p RetryPolicy) Delay(k int) time.Duration {
	d := p.Base
	for i := 0; i < k && d < p.Max; i++ {
		d *= 2
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryingProvider retries transient provider failures and bounds the result to the requested limit.
type RetryingProvider struct {
	inner  ports.ReviewProvider
	policy RetryPolicy
	sleep  SleepFunc
	logger *slog.Logger
}

var _ ports.ReviewProvider = (*RetryingProvider)(nil)

// RetryOption customizes a RetryingProvider.
type RetryOption func(*RetryingProvider)

// WithSleep replaces the backoff sleeper, mainly for tests.
func WithSleep(fn SleepFunc) RetryOption {
	return func(r *RetryingProvider) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// WithRetry wraps inner with the retry policy.
func WithRetry(inner ports.ReviewProvider, policy RetryPolicy, log *slog.Logger, opts ...RetryOption) *RetryingProvider {
	if policy.Retries < 0 {
		policy.Retries = 0
	}
	if policy.Base <= 0 {
		policy.Base = DefaultRetryPolicy.Base
	}
	if policy.Max <= 0 {
		policy.Max = DefaultRetryPolicy.Max
	}
	if log == nil {
		log = slog.Default()
	}
	r := &RetryingProvider{inner: inner, policy: policy, sleep: sleepCtx, logger: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch calls the inner provider until it succeeds, fails permanently or runs out of retries.
// Exhaustion is reported as domain.ErrProviderUnavailable wrapping the last failure.
func (r *RetryingProvider) Fetch(ctx context.Context, query domain.ProductQuery, limit int) ([]domain.RawReview, error) {
	var lastErr error
	attempts := 0
	for k := 0; k <= r.policy.Retries; k++ {
		attempts++
		reviews, err := r.inner.Fetch(ctx, query, limit)
		if err == nil {
			if limit > 0 && len(reviews) > limit {
				reviews = reviews[:limit]
			}
			return reviews, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if errors.Is(err, domain.ErrPermanent) || k == r.policy.Retries {
			break
		}

		delay := r.policy.Delay(k)
		r.logger.Warn("provider fetch failed, retrying",
			"product", query.Normalized, "attempt", attempts, "max_attempts", r.policy.Retries+1, "delay", delay, "error", err)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s failed after %d attempt(s): %w", domain.ErrProviderUnavailable, query.Normalized, attempts, lastErr)
}

// Version is the inner provider's version; retrying does not change what is fetched.
func (r *RetryingProvider) Version() string {
	return r.inner.Version()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
