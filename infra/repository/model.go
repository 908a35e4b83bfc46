package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankConnection is a bank connection row.
type BankConnection struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider   string    `gorm:"type:varchar(32);not null"`
	ExternalID string    `gorm:"uniqueIndex;not null;size:128"`
	Status     string    `gorm:"type:varchar(16);not null;index"`
	LastSyncAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Accounts []BankAccount `gorm:"constraint:OnDelete:CASCADE"`
}

// BankAccount is a synced account row. (ConnectionID, ExternalID) is the
// reconciliation upsert key.
type BankAccount struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	ConnectionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_account_conn_ext"`
	ExternalID   string          `gorm:"not null;size:128;uniqueIndex:idx_account_conn_ext"`
	Name         string          `gorm:"size:255"`
	Type         string          `gorm:"type:varchar(32)"`
	Balance      decimal.Decimal `gorm:"type:decimal(19,4);not null"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	IBAN         string          `gorm:"column:iban;size:34"`
	LastSyncAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Transactions []BankTransaction `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// BankTransaction is an imported transaction row. (AccountID, ExternalID)
// is the idempotency key.
type BankTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	AccountID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_tx_account_ext"`
	ExternalID      string          `gorm:"not null;size:128;uniqueIndex:idx_tx_account_ext"`
	Amount          decimal.Decimal `gorm:"type:decimal(19,4);not null"`
	Currency        string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Description     string          `gorm:"size:512"`
	TransactionDate time.Time       `gorm:"not null;index"`
	ValueDate       *time.Time
	Category        string `gorm:"type:varchar(64)"`
	CreatedAt       time.Time
}
