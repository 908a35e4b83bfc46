package webapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/mosaiq/bankfeed/pkg/domain"
)

// ConnectionDTO is the wire shape of a bank connection. The provider-side
// external id stays internal.
type ConnectionDTO struct {
	ID         uuid.UUID  `json:"id"`
	Provider   string     `json:"provider"`
	Status     string     `json:"status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type BankAccountDTO struct {
	ID           uuid.UUID  `json:"id"`
	ConnectionID uuid.UUID  `json:"connection_id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Balance      string     `json:"balance"`
	Currency     string     `json:"currency"`
	IBAN         string     `json:"iban,omitempty"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}

type BankTransactionDTO struct {
	ID              uuid.UUID  `json:"id"`
	AccountID       uuid.UUID  `json:"account_id"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	Description     string     `json:"description"`
	TransactionDate time.Time  `json:"transaction_date"`
	ValueDate       *time.Time `json:"value_date,omitempty"`
	Category        string     `json:"category,omitempty"`
}

func ToConnectionDTO(conn *domain.Connection) *ConnectionDTO {
	return &ConnectionDTO{
		ID:         conn.ID,
		Provider:   conn.Provider,
		Status:     string(conn.Status),
		LastSyncAt: conn.LastSyncAt,
		CreatedAt:  conn.CreatedAt,
	}
}

func ToBankAccountDTO(account *domain.BankAccount) *BankAccountDTO {
	return &BankAccountDTO{
		ID:           account.ID,
		ConnectionID: account.ConnectionID,
		Name:         account.Name,
		Type:         account.Type,
		Balance:      account.Balance.StringFixed(2),
		Currency:     account.Currency,
		IBAN:         account.IBAN,
		LastSyncAt:   account.LastSyncAt,
	}
}

func ToBankTransactionDTO(tx *domain.BankTransaction) *BankTransactionDTO {
	return &BankTransactionDTO{
		ID:              tx.ID,
		AccountID:       tx.AccountID,
		Amount:          tx.Amount.StringFixed(2),
		Currency:        tx.Currency,
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate,
		ValueDate:       tx.ValueDate,
		Category:        tx.Category,
	}
}
