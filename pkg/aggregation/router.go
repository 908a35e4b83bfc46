// Package aggregation routes operations on opaque external connection ids
// to the owning provider adapter, wrapping every call in that provider's
// resilience policy. It is the single entry point the reconciler, webhook
// gateway and connection service use to talk to the outside world.
package aggregation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/mosaiq/bankfeed/pkg/registry"
	"github.com/mosaiq/bankfeed/pkg/resilience"
)

// Router resolves adapters by provider code or external id prefix and
// executes adapter calls under the provider's composed resilience policy.
type Router struct {
	adapters        *registry.Registry
	policies        *resilience.Registry
	defaultProvider string
	logger          *slog.Logger
}

// NewRouter wires the adapter registry to the resilience policy registry.
func NewRouter(
	adapters *registry.Registry,
	policies *resilience.Registry,
	defaultProvider string,
	logger *slog.Logger,
) *Router {
	return &Router{
		adapters:        adapters,
		policies:        policies,
		defaultProvider: defaultProvider,
		logger:          logger,
	}
}

// Route determines the provider code for an external connection id from
// the id-prefix convention each adapter stamps at creation time. Ids that
// match no known convention fall back to the configured default provider;
// that ambiguity is logged because it usually means a registration gap.
func (r *Router) Route(externalID string) string {
	if code, ok := r.adapters.ResolvePrefix(externalID); ok {
		return code
	}
	r.logger.Warn("external id matches no provider prefix, using default",
		"external_id", externalID,
		"default_provider", r.defaultProvider)
	return r.defaultProvider
}

// IsSupported reports whether a provider code has a registered adapter.
func (r *Router) IsSupported(code string) bool {
	return r.adapters.IsRegistered(code)
}

// Providers lists registered provider metadata.
func (r *Router) Providers() []registry.Meta {
	return r.adapters.List()
}

// Initiate creates a link at the named provider and returns the external
// connection id.
func (r *Router) Initiate(ctx context.Context, providerCode string, creds provider.Credentials) (string, error) {
	adapter, err := r.adapter(providerCode)
	if err != nil {
		return "", err
	}
	var externalID string
	err = r.policies.Get(providerCode).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		externalID, opErr = adapter.Initiate(ctx, creds)
		return opErr
	})
	return externalID, err
}

// Confirm completes a pending link. Invalid codes yield (false, nil).
func (r *Router) Confirm(ctx context.Context, externalID, code string) (bool, error) {
	adapter, providerCode, err := r.route(externalID)
	if err != nil {
		return false, err
	}
	var confirmed bool
	err = r.policies.Get(providerCode).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		confirmed, opErr = adapter.Confirm(ctx, externalID, code)
		return opErr
	})
	return confirmed, err
}

// ListAccounts fetches the accounts under a connection.
func (r *Router) ListAccounts(ctx context.Context, externalID string) ([]provider.ExternalAccount, error) {
	adapter, providerCode, err := r.route(externalID)
	if err != nil {
		return nil, err
	}
	var accounts []provider.ExternalAccount
	err = r.policies.Get(providerCode).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		accounts, opErr = adapter.ListAccounts(ctx, externalID)
		return opErr
	})
	return accounts, err
}

// ListTransactions fetches one account's transactions over the lookback
// window.
func (r *Router) ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error) {
	adapter, providerCode, err := r.route(externalID)
	if err != nil {
		return nil, err
	}
	var txs []provider.ExternalTransaction
	err = r.policies.Get(providerCode).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		txs, opErr = adapter.ListTransactions(ctx, externalID, accountID, lookbackDays)
		return opErr
	})
	return txs, err
}

// CheckHealth reports connection health. Resolution failures and policy
// rejections read as unhealthy; this never returns an error.
func (r *Router) CheckHealth(ctx context.Context, externalID string) bool {
	adapter, providerCode, err := r.route(externalID)
	if err != nil {
		return false
	}
	healthy := false
	err = r.policies.Get(providerCode).Execute(ctx, func(ctx context.Context) error {
		healthy = adapter.CheckHealth(ctx, externalID)
		return nil
	})
	if err != nil {
		r.logger.Warn("health check rejected by resilience policy",
			"provider", providerCode, "error", err)
		return false
	}
	return healthy
}

// Revoke tears down the link at the provider.
func (r *Router) Revoke(ctx context.Context, externalID string) (bool, error) {
	adapter, providerCode, err := r.route(externalID)
	if err != nil {
		return false, err
	}
	var revoked bool
	err = r.policies.Get(providerCode).Execute(ctx, func(ctx context.Context) error {
		var opErr error
		revoked, opErr = adapter.Revoke(ctx, externalID)
		return opErr
	})
	return revoked, err
}

func (r *Router) adapter(code string) (provider.BankAdapter, error) {
	adapter, ok := r.adapters.Get(code)
	if !ok {
		return nil, fmt.Errorf("%s: %w", code, domain.ErrUnsupportedProvider)
	}
	return adapter, nil
}

func (r *Router) route(externalID string) (provider.BankAdapter, string, error) {
	code := r.Route(externalID)
	adapter, err := r.adapter(code)
	if err != nil {
		return nil, code, err
	}
	return adapter, code, nil
}
