package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mosaiq/bankfeed/pkg/provider"
)

// Gateway is a testify mock for the reconciler's view of the aggregation
// router.
type Gateway struct {
	mock.Mock
}

// ListAccounts mocks the account fetch.
func (m *Gateway) ListAccounts(ctx context.Context, externalID string) ([]provider.ExternalAccount, error) {
	args := m.Called(ctx, externalID)
	accounts, _ := args.Get(0).([]provider.ExternalAccount)
	return accounts, args.Error(1)
}

// ListTransactions mocks the transaction fetch.
func (m *Gateway) ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error) {
	args := m.Called(ctx, externalID, accountID, lookbackDays)
	txns, _ := args.Get(0).([]provider.ExternalTransaction)
	return txns, args.Error(1)
}
