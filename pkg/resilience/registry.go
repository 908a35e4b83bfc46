package resilience

import (
	"log/slog"
	"sync"
)

// Registry holds one composed Policy per provider plus a default policy for
// providers registered without specific settings. Policies are shared across
// all workers and connections of a provider.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	fallback Settings
	logger   *slog.Logger
}

// NewRegistry creates a registry whose unregistered providers get the given
// fallback settings.
func NewRegistry(fallback Settings, logger *slog.Logger) *Registry {
	return &Registry{
		policies: make(map[string]*Policy),
		fallback: fallback,
		logger:   logger,
	}
}

// Configure installs (or replaces) the policy for a provider.
func (r *Registry) Configure(name string, settings Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[name] = NewPolicy(name, settings, r.logger)
	r.logger.Info("resilience policy configured",
		"provider", name,
		"breaker_enabled", settings.Breaker.Enabled,
		"failure_rate_threshold", settings.Breaker.FailureRateThreshold,
		"window_size", settings.Breaker.WindowSize,
		"retry_max_attempts", settings.Retry.MaxAttempts,
		"limiter_requests", settings.Limiter.Requests,
		"limiter_period", settings.Limiter.Period,
	)
}

// Get returns the provider's policy, lazily creating one from the fallback
// settings for providers never configured explicitly.
func (r *Registry) Get(name string) *Policy {
	r.mu.RLock()
	p, ok := r.policies[name]
	r.mu.RUnlock()
	if ok {
		return p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.policies[name]; ok {
		return p
	}
	p = NewPolicy(name, r.fallback, r.logger)
	r.policies[name] = p
	return p
}

// States reports every configured provider's breaker state, for the health
// report.
func (r *Registry) States() map[string]BreakerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[string]BreakerState, len(r.policies))
	for name, p := range r.policies {
		states[name] = p.BreakerState()
	}
	return states
}
