package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount is an externally-sourced account under one connection.
// (ConnectionID, ExternalID) is the upsert key: reconciliation updates the
// mutable fields of an existing row and never creates duplicates.
type BankAccount struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	ExternalID   string
	Name         string
	Type         string
	Balance      decimal.Decimal
	Currency     string
	IBAN         string
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BankTransaction is an externally-sourced transaction under one account.
// (AccountID, ExternalID) is the idempotency key: once created, amount and
// dates are immutable; only Category may be back-filled.
type BankTransaction struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	ExternalID      string
	Amount          decimal.Decimal
	Currency        string
	Description     string
	TransactionDate time.Time
	ValueDate       *time.Time
	Category        string
	CreatedAt       time.Time
}
