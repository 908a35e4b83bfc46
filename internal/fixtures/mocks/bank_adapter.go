// Package mocks holds shared testify mocks for the aggregation engine's
// interfaces.
package mocks

import (
	"context"

	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/stretchr/testify/mock"
)

// BankAdapter is a testify mock of provider.BankAdapter.
type BankAdapter struct {
	mock.Mock
	ProviderCode string
	Prefix       string
}

func (m *BankAdapter) Initiate(ctx context.Context, creds provider.Credentials) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *BankAdapter) Confirm(ctx context.Context, externalID, code string) (bool, error) {
	args := m.Called(ctx, externalID, code)
	return args.Bool(0), args.Error(1)
}

func (m *BankAdapter) ListAccounts(ctx context.Context, externalID string) ([]provider.ExternalAccount, error) {
	args := m.Called(ctx, externalID)
	if accounts, ok := args.Get(0).([]provider.ExternalAccount); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BankAdapter) ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error) {
	args := m.Called(ctx, externalID, accountID, lookbackDays)
	if txs, ok := args.Get(0).([]provider.ExternalTransaction); ok {
		return txs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BankAdapter) CheckHealth(ctx context.Context, externalID string) bool {
	args := m.Called(ctx, externalID)
	return args.Bool(0)
}

func (m *BankAdapter) Revoke(ctx context.Context, externalID string) (bool, error) {
	args := m.Called(ctx, externalID)
	return args.Bool(0), args.Error(1)
}

func (m *BankAdapter) Name() string { return m.ProviderCode }

func (m *BankAdapter) IDPrefix() string { return m.Prefix }
