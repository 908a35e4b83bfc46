// Package resilience composes the per-provider circuit breaker, retry and
// rate-limiter policies wrapped around every bank adapter call. State is
// process-local and never persisted: a restart starts every breaker closed
// with a full token bucket.
package resilience

import "time"

// BreakerSettings configures one provider's circuit breaker.
type BreakerSettings struct {
	Enabled              bool
	FailureRateThreshold float64
	MinimumCalls         int
	WindowSize           int
	OpenDuration         time.Duration
	HalfOpenCalls        int
	SlowCallThreshold    time.Duration
}

// RetrySettings configures one provider's retry policy.
type RetrySettings struct {
	Enabled     bool
	MaxAttempts int
	BaseDelay   time.Duration
}

// LimiterSettings configures one provider's rate limiter as a token bucket
// of Requests permits refreshed every Period.
type LimiterSettings struct {
	Enabled     bool
	Requests    int
	Period      time.Duration
	WaitTimeout time.Duration
}

// Settings bundles the three policies for one provider.
type Settings struct {
	Breaker BreakerSettings
	Retry   RetrySettings
	Limiter LimiterSettings
}

// DefaultSettings is the conservative policy applied to providers without a
// specific configuration.
func DefaultSettings() Settings {
	return Settings{
		Breaker: BreakerSettings{
			Enabled:              true,
			FailureRateThreshold: 50,
			MinimumCalls:         10,
			WindowSize:           20,
			OpenDuration:         30 * time.Second,
			HalfOpenCalls:        5,
			SlowCallThreshold:    10 * time.Second,
		},
		Retry: RetrySettings{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		Limiter: LimiterSettings{
			Enabled:     true,
			Requests:    50,
			Period:      time.Minute,
			WaitTimeout: 5 * time.Second,
		},
	}
}

// BudgetInsightSettings reflects Budget Insight's historically stable API:
// a more tolerant breaker and a generous quota.
func BudgetInsightSettings() Settings {
	s := DefaultSettings()
	s.Breaker.FailureRateThreshold = 60
	s.Breaker.MinimumCalls = 15
	s.Breaker.WindowSize = 30
	s.Breaker.OpenDuration = 45 * time.Second
	s.Limiter.Requests = 100
	s.Limiter.WaitTimeout = 3 * time.Second
	return s
}

// BridgeSettings is the standard policy for the Bridge API.
func BridgeSettings() Settings {
	s := DefaultSettings()
	s.Limiter.Requests = 75
	return s
}

// MockSettings keeps the mock provider effectively unconstrained so tests
// and local development never trip real thresholds.
func MockSettings() Settings {
	s := DefaultSettings()
	s.Limiter.Requests = 1000
	s.Limiter.Period = time.Minute
	return s
}
