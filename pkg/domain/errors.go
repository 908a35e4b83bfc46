package domain

import "errors"

// Error kinds surfaced by the aggregation core. Callers classify with
// errors.Is; adapters wrap these with provider context.
var (
	// ErrProviderAuth signals bad or expired credentials at the provider.
	// Never retried.
	ErrProviderAuth = errors.New("provider authentication failed")

	// ErrProviderUnavailable signals a network fault, timeout or 5xx from
	// the provider. Retryable within policy limits.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrCircuitOpen is returned without any network activity while a
	// provider's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRateLimitExceeded is returned when no rate-limiter permit became
	// available within the configured wait timeout.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrUnsupportedProvider signals a provider code with no registered
	// adapter. Caller error, never retried.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrWebhookVerification signals a webhook signature mismatch.
	ErrWebhookVerification = errors.New("webhook signature verification failed")

	// ErrConnectionNotFound signals an unknown connection id.
	ErrConnectionNotFound = errors.New("bank connection not found")

	// ErrConnectionNotActive signals an operation that requires an ACTIVE
	// connection.
	ErrConnectionNotActive = errors.New("bank connection is not active")

	// ErrNotOwner signals an access attempt by a user who does not own the
	// connection.
	ErrNotOwner = errors.New("user does not own this bank connection")
)
