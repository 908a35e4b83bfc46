package provider

import (
	"context"
	"errors"
	"net"

	"github.com/mosaiq/bankfeed/pkg/domain"
)

// IsRetryable reports whether an adapter error is worth retrying:
// network faults, timeouts, provider 5xx and rate-limit rejections.
// Authentication and other client-side errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrProviderAuth) ||
		errors.Is(err, domain.ErrUnsupportedProvider) {
		return false
	}
	if errors.Is(err, domain.ErrProviderUnavailable) ||
		errors.Is(err, domain.ErrRateLimitExceeded) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// CountsAsBreakerFailure reports whether an error should feed the circuit
// breaker's failure window. Client/auth errors do not: they say nothing
// about the provider's availability.
func CountsAsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrProviderAuth) ||
		errors.Is(err, domain.ErrUnsupportedProvider) ||
		errors.Is(err, domain.ErrCircuitOpen) {
		return false
	}
	return true
}
