package resilience

import "github.com/mosaiq/bankfeed/pkg/config"

// FromConfig overlays environment-provided thresholds onto a base preset.
// Zero-valued fields keep the preset, so operators only override what they
// need to.
func FromConfig(base Settings, cfg *config.Resilience) Settings {
	if cfg == nil {
		return base
	}
	if cb := cfg.CircuitBreaker; cb != nil {
		base.Breaker.Enabled = cb.Enabled
		if cb.FailureRateThreshold > 0 {
			base.Breaker.FailureRateThreshold = cb.FailureRateThreshold
		}
		if cb.MinimumCalls > 0 {
			base.Breaker.MinimumCalls = cb.MinimumCalls
		}
		if cb.WindowSize > 0 {
			base.Breaker.WindowSize = cb.WindowSize
		}
		if cb.OpenDuration > 0 {
			base.Breaker.OpenDuration = cb.OpenDuration
		}
		if cb.HalfOpenCalls > 0 {
			base.Breaker.HalfOpenCalls = cb.HalfOpenCalls
		}
		if cb.SlowCallThreshold > 0 {
			base.Breaker.SlowCallThreshold = cb.SlowCallThreshold
		}
	}
	if rt := cfg.Retry; rt != nil {
		base.Retry.Enabled = rt.Enabled
		if rt.MaxAttempts > 0 {
			base.Retry.MaxAttempts = rt.MaxAttempts
		}
		if rt.BaseDelay > 0 {
			base.Retry.BaseDelay = rt.BaseDelay
		}
	}
	if lim := cfg.Limiter; lim != nil {
		base.Limiter.Enabled = lim.Enabled
		if lim.Requests > 0 {
			base.Limiter.Requests = lim.Requests
		}
		if lim.Period > 0 {
			base.Limiter.Period = lim.Period
		}
		if lim.WaitTimeout > 0 {
			base.Limiter.WaitTimeout = lim.WaitTimeout
		}
	}
	return base
}
