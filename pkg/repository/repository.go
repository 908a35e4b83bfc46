package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mosaiq/bankfeed/pkg/domain"
)

// ConnectionRepository persists bank connections.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.Connection) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Connection, error)
	// GetByExternalID looks a connection up by its provider-issued id, used
	// by webhook handling where only the external id is known.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Connection, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Connection, error)
	// ListNeedingSync returns ACTIVE connections whose last successful sync
	// predates the cutoff (or that never synced), oldest first, capped at
	// limit. limit <= 0 means no cap.
	ListNeedingSync(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Connection, error)
	// ListByStatusOlderThan returns connections in the given status whose
	// last update predates the cutoff. The cleanup sweep uses it to retire
	// stale ERROR and EXPIRED rows.
	ListByStatusOlderThan(ctx context.Context, status domain.ConnectionStatus, cutoff time.Time) ([]*domain.Connection, error)
	CountByStatus(ctx context.Context) (map[domain.ConnectionStatus]int64, error)
	Update(ctx context.Context, conn *domain.Connection) error
	// Delete removes a connection and, by cascade, its accounts and
	// transactions.
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccountRepository persists synced bank accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.BankAccount) error
	Get(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error)
	// GetByConnectionAndExternalID is the reconciliation upsert probe.
	// Returns (nil, nil) when no row matches.
	GetByConnectionAndExternalID(ctx context.Context, connectionID uuid.UUID, externalID string) (*domain.BankAccount, error)
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*domain.BankAccount, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error)
	Update(ctx context.Context, account *domain.BankAccount) error
}

// TransactionRepository persists synced bank transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.BankTransaction) error
	// ExistsByAccountAndExternalID is the reconciliation idempotency probe:
	// an already-imported transaction is never touched again.
	ExistsByAccountAndExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (bool, error)
	// ListByAccount returns transactions newest first, capped at limit.
	// limit <= 0 means no cap.
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.BankTransaction, error)
}
