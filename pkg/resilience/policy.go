package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/mosaiq/bankfeed/pkg/provider"
)

// Policy composes one provider's circuit breaker, retry and rate limiter
// around an adapter call, in that fixed nesting order. The breaker's window
// sees one outcome per Execute (the retry-exhausted result), while the rate
// limiter gates every individual attempt, retries included.
type Policy struct {
	name    string
	breaker *CircuitBreaker
	retry   RetrySettings
	limiter *RateLimiter
	logger  *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy builds one provider's composed policy.
func NewPolicy(name string, settings Settings, logger *slog.Logger) *Policy {
	return &Policy{
		name:    name,
		breaker: NewCircuitBreaker(name, settings.Breaker),
		retry:   settings.Retry,
		limiter: NewRateLimiter(name, settings.Limiter),
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Execute runs op under the composed policy. Non-retryable errors (auth and
// other client faults) propagate immediately and never feed the breaker.
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := p.breaker.Allow(); err != nil {
		p.logger.Warn("call rejected by open circuit", "provider", p.name)
		return err
	}

	var err error
	var attemptStart time.Time
	var attemptDuration time.Duration

	maxAttempts := 1
	if p.retry.Enabled {
		maxAttempts = p.retry.MaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = p.limiter.Acquire(ctx); err == nil {
			attemptStart = time.Now()
			err = op(ctx)
			attemptDuration = time.Since(attemptStart)
		}
		if err == nil {
			break
		}
		if !provider.IsRetryable(err) {
			// Client/auth fault: surface immediately. Such errors
			// say nothing about provider health, so they stay out
			// of the breaker window entirely.
			return err
		}
		if attempt < maxAttempts {
			delay := p.retry.BaseDelay << (attempt - 1)
			p.logger.Debug("retrying provider call",
				"provider", p.name,
				"attempt", attempt,
				"delay", delay,
				"error", err)
			if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
				break
			}
		}
	}

	if err == nil || provider.CountsAsBreakerFailure(err) {
		p.breaker.Record(attemptDuration, err != nil)
	}
	return err
}

// BreakerState exposes the breaker state for health reporting.
func (p *Policy) BreakerState() BreakerState {
	return p.breaker.State()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
