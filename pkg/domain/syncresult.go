package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncResult aggregates the outcome of one connection's reconciliation.
type SyncResult struct {
	ConnectionID       uuid.UUID `json:"connection_id"`
	Success            bool      `json:"success"`
	Message            string    `json:"message,omitempty"`
	AccountsSynced     int       `json:"accounts_synced"`
	TransactionsSynced int       `json:"transactions_synced"`
	NewAccounts        int       `json:"new_accounts"`
	NewTransactions    int       `json:"new_transactions"`
	Categorized        int       `json:"categorized"`
	Errors             []string  `json:"errors,omitempty"`
	SyncedAt           time.Time `json:"synced_at"`
}

// FailedSyncResult builds the result for a reconciliation that aborted
// before any state was committed.
func FailedSyncResult(connectionID uuid.UUID, msg string) SyncResult {
	return SyncResult{
		ConnectionID: connectionID,
		Success:      false,
		Message:      msg,
		Errors:       []string{msg},
		SyncedAt:     time.Now().UTC(),
	}
}
