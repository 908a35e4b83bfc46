package resilience

import (
	"context"
	"fmt"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"golang.org/x/time/rate"
)

// RateLimiter gates individual adapter call attempts with a token bucket of
// Requests permits refreshed per Period. A caller blocks up to WaitTimeout
// for a permit, then fails with domain.ErrRateLimitExceeded.
type RateLimiter struct {
	name     string
	settings LimiterSettings
	bucket   *rate.Limiter
}

// NewRateLimiter builds the bucket from the provider's quota settings.
func NewRateLimiter(name string, settings LimiterSettings) *RateLimiter {
	refill := rate.Limit(float64(settings.Requests) / settings.Period.Seconds())
	return &RateLimiter{
		name:     name,
		settings: settings,
		bucket:   rate.NewLimiter(refill, settings.Requests),
	}
}

// Acquire blocks until a permit is available or the wait timeout expires.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if !l.settings.Enabled {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, l.settings.WaitTimeout)
	defer cancel()
	if err := l.bucket.Wait(waitCtx); err != nil {
		// Propagate caller cancellation as-is; only the bounded wait
		// reads as a quota rejection.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", l.name, domain.ErrRateLimitExceeded)
	}
	return nil
}
