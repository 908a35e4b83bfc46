// Package mockbank is an in-process aggregation adapter with
// deterministic data, used in development and tests so the full link,
// sync and webhook flow can run without external credentials.
package mockbank

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mosaiq/bankfeed/pkg/provider"
)

const idPrefix = "mock_"

// Adapter serves canned accounts and transactions.
type Adapter struct {
	logger *slog.Logger

	mu      sync.Mutex
	serial  int
	revoked map[string]bool

	now func() time.Time
}

// New builds the adapter.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		logger:  logger.With("provider", "mock"),
		revoked: map[string]bool{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the provider code.
func (a *Adapter) Name() string { return "mock" }

// IDPrefix returns the external id prefix this adapter issues.
func (a *Adapter) IDPrefix() string { return idPrefix }

// Initiate issues a fresh connection id. Any credentials are accepted.
func (a *Adapter) Initiate(_ context.Context, _ provider.Credentials) (string, error) {
	a.mu.Lock()
	a.serial++
	id := fmt.Sprintf("%s%d_%d", idPrefix, a.now().UnixMilli(), a.serial)
	a.mu.Unlock()
	a.logger.Info("mock connection initiated", "external_id", id)
	return id, nil
}

// Confirm accepts any non-empty code.
func (a *Adapter) Confirm(_ context.Context, _, code string) (bool, error) {
	return code != "", nil
}

// ListAccounts returns two fixed accounts.
func (a *Adapter) ListAccounts(_ context.Context, externalID string) ([]provider.ExternalAccount, error) {
	if a.isRevoked(externalID) {
		return nil, nil
	}
	return []provider.ExternalAccount{
		{
			ExternalID: "mock_account_1",
			Name:       "Compte Courant Mock",
			Type:       "CHECKING",
			Balance:    decimal.RequireFromString("2450.75"),
			Currency:   "EUR",
			IBAN:       "FR1420041010050500013M02606",
		},
		{
			ExternalID: "mock_account_2",
			Name:       "Livret A Mock",
			Type:       "SAVINGS",
			Balance:    decimal.RequireFromString("15000.00"),
			Currency:   "EUR",
		},
	}, nil
}

// ListTransactions returns a deterministic set of recent transactions.
func (a *Adapter) ListTransactions(_ context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error) {
	if a.isRevoked(externalID) {
		return nil, nil
	}
	now := a.now()
	all := []provider.ExternalTransaction{
		{
			ExternalID:      "mock_tx_1",
			Amount:          decimal.RequireFromString("-45.67"),
			Currency:        "EUR",
			Description:     "ACHAT CARTE MONOPRIX",
			TransactionDate: now.AddDate(0, 0, -1),
		},
		{
			ExternalID:      "mock_tx_2",
			Amount:          decimal.RequireFromString("2500.00"),
			Currency:        "EUR",
			Description:     "SALAIRE ENTREPRISE XYZ",
			TransactionDate: now.AddDate(0, 0, -3),
		},
		{
			ExternalID:      "mock_tx_3",
			Amount:          decimal.RequireFromString("-12.40"),
			Currency:        "EUR",
			Description:     "SNCF PARIS LYON",
			TransactionDate: now.AddDate(0, 0, -45),
		},
	}

	cutoff := now.AddDate(0, 0, -lookbackDays)
	txns := make([]provider.ExternalTransaction, 0, len(all))
	for _, tx := range all {
		if tx.TransactionDate.Before(cutoff) {
			continue
		}
		txns = append(txns, tx)
	}
	_ = accountID
	return txns, nil
}

// CheckHealth reports healthy unless the connection was revoked.
func (a *Adapter) CheckHealth(_ context.Context, externalID string) bool {
	return !a.isRevoked(externalID)
}

// Revoke remembers the revocation so later calls return nothing.
func (a *Adapter) Revoke(_ context.Context, externalID string) (bool, error) {
	a.mu.Lock()
	a.revoked[externalID] = true
	a.mu.Unlock()
	return true, nil
}

func (a *Adapter) isRevoked(externalID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revoked[externalID]
}
