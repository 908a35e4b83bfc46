// Package provider defines the uniform capability set every bank
// aggregation adapter implements, plus the externally-sourced data shapes
// adapters return. Concrete adapters live in infra/provider.
package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Credentials are the user-supplied bank credentials forwarded to a
// provider when initiating a link. Adapters must never log the password.
type Credentials struct {
	Login    string
	Password string
}

// ExternalAccount is an account as reported by a provider, already
// normalized: balances are in decimal currency units regardless of how the
// provider reports them on the wire.
type ExternalAccount struct {
	ExternalID string
	Name       string
	Type       string
	Balance    decimal.Decimal
	Currency   string
	IBAN       string
}

// ExternalTransaction is a transaction as reported by a provider, amount
// normalized to decimal currency units and signed (negative for debits).
type ExternalTransaction struct {
	ExternalID      string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	TransactionDate time.Time
	ValueDate       *time.Time
	Category        string
}

// BankAdapter is the uniform aggregation capability set. One implementation
// exists per external provider; the aggregation router selects among them.
type BankAdapter interface {
	// Initiate creates a link at the provider and returns the external
	// connection id, prefixed with the adapter's id prefix.
	Initiate(ctx context.Context, creds Credentials) (string, error)

	// Confirm completes a link after strong authentication. Idempotent;
	// returns false rather than an error on an invalid or expired code.
	Confirm(ctx context.Context, externalID, code string) (bool, error)

	// ListAccounts returns the accounts visible under a connection.
	ListAccounts(ctx context.Context, externalID string) ([]ExternalAccount, error)

	// ListTransactions returns transactions for one account over a bounded
	// lookback window.
	ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]ExternalTransaction, error)

	// CheckHealth reports whether the connection is usable. Never returns
	// an error; any fault reads as unhealthy.
	CheckHealth(ctx context.Context, externalID string) bool

	// Revoke tears down the link at the provider.
	Revoke(ctx context.Context, externalID string) (bool, error)

	// Name returns the provider code this adapter serves.
	Name() string

	// IDPrefix returns the prefix this adapter stamps on external ids.
	IDPrefix() string
}
