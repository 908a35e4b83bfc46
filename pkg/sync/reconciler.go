// Package sync implements the reconciliation of externally-fetched bank
// data into local storage. Reconciliation is idempotent: accounts are
// upserted by (connection, external id), transactions are inserted only if
// absent, so a re-run against unchanged provider data never duplicates
// rows or rewrites an imported amount.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mosaiq/bankfeed/pkg/categorizer"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

// Gateway is the slice of the aggregation router the reconciler needs.
type Gateway interface {
	ListAccounts(ctx context.Context, externalID string) ([]provider.ExternalAccount, error)
	ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error)
}

// Reconciler merges one connection's external accounts and transactions
// into local storage inside a single unit of work.
type Reconciler struct {
	gateway      Gateway
	uow          repository.UnitOfWork
	categorize   categorizer.Func
	lookbackDays int
	logger       *slog.Logger

	now func() time.Time
}

// NewReconciler builds a Reconciler. lookbackDays bounds the transaction
// fetch window per account.
func NewReconciler(
	gateway Gateway,
	uow repository.UnitOfWork,
	categorize categorizer.Func,
	lookbackDays int,
	logger *slog.Logger,
) *Reconciler {
	if categorize == nil {
		categorize = categorizer.None()
	}
	return &Reconciler{
		gateway:      gateway,
		uow:          uow,
		categorize:   categorize,
		lookbackDays: lookbackDays,
		logger:       logger.With("component", "reconciler"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// accountBatch pairs an external account with its fetched transactions, so
// all network calls finish before the storage transaction opens.
type accountBatch struct {
	external provider.ExternalAccount
	txns     []provider.ExternalTransaction
	fetchErr error
}

// Reconcile pulls the connection's accounts and recent transactions
// through the gateway and merges them into local storage. A failed account
// fetch aborts the whole run with a failed result and no local mutation. A
// failed transaction fetch for one account is isolated: that account's
// transactions are skipped, the error is recorded, and the rest of the run
// proceeds. All writes for one run commit together or not at all.
func (r *Reconciler) Reconcile(ctx context.Context, conn *domain.Connection) domain.SyncResult {
	log := r.logger.With("connection_id", conn.ID, "provider", conn.Provider)
	log.Info("starting sync")

	extAccounts, err := r.gateway.ListAccounts(ctx, conn.ExternalID)
	if err != nil {
		log.Error("account fetch failed, aborting sync", "error", err)
		return domain.FailedSyncResult(conn.ID, err.Error())
	}

	batches := make([]accountBatch, 0, len(extAccounts))
	for _, ext := range extAccounts {
		b := accountBatch{external: ext}
		b.txns, b.fetchErr = r.gateway.ListTransactions(ctx, conn.ExternalID, ext.ExternalID, r.lookbackDays)
		if b.fetchErr != nil {
			log.Warn("transaction fetch failed, skipping account",
				"account_external_id", ext.ExternalID, "error", b.fetchErr)
		}
		batches = append(batches, b)
	}

	result := domain.SyncResult{ConnectionID: conn.ID, SyncedAt: r.now()}
	err = r.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		return r.merge(ctx, uow, conn, batches, &result)
	})
	if err != nil {
		log.Error("sync rolled back", "error", err)
		return domain.FailedSyncResult(conn.ID, err.Error())
	}

	result.Success = true
	if len(result.Errors) > 0 {
		result.Message = fmt.Sprintf("sync completed with %d partial errors", len(result.Errors))
	} else {
		result.Message = "sync completed"
	}
	log.Info("sync completed",
		"accounts", result.AccountsSynced,
		"new_accounts", result.NewAccounts,
		"transactions", result.TransactionsSynced,
		"new_transactions", result.NewTransactions,
		"categorized", result.Categorized,
		"partial_errors", len(result.Errors))
	return result
}

func (r *Reconciler) merge(
	ctx context.Context,
	uow repository.UnitOfWork,
	conn *domain.Connection,
	batches []accountBatch,
	result *domain.SyncResult,
) error {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return err
	}
	transactions, err := uow.TransactionRepository()
	if err != nil {
		return err
	}
	connections, err := uow.ConnectionRepository()
	if err != nil {
		return err
	}

	for _, b := range batches {
		local, created, err := r.upsertAccount(ctx, accounts, conn.ID, b.external, result.SyncedAt)
		if err != nil {
			return err
		}
		result.AccountsSynced++
		if created {
			result.NewAccounts++
		}

		if b.fetchErr != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("account %s: %v", b.external.ExternalID, b.fetchErr))
			continue
		}
		if err := r.mergeTransactions(ctx, transactions, local.ID, b.txns, result); err != nil {
			return err
		}
	}

	conn.MarkSynced(result.SyncedAt)
	if conn.Status == domain.ConnectionError {
		conn.Status = domain.ConnectionActive
	}
	return connections.Update(ctx, conn)
}

func (r *Reconciler) upsertAccount(
	ctx context.Context,
	accounts repository.AccountRepository,
	connectionID uuid.UUID,
	ext provider.ExternalAccount,
	syncedAt time.Time,
) (*domain.BankAccount, bool, error) {
	existing, err := accounts.GetByConnectionAndExternalID(ctx, connectionID, ext.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		existing.Name = ext.Name
		existing.Type = ext.Type
		existing.Balance = ext.Balance
		existing.Currency = ext.Currency
		existing.IBAN = ext.IBAN
		existing.LastSyncAt = &syncedAt
		existing.UpdatedAt = syncedAt
		if err := accounts.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	account := &domain.BankAccount{
		ID:           uuid.New(),
		ConnectionID: connectionID,
		ExternalID:   ext.ExternalID,
		Name:         ext.Name,
		Type:         ext.Type,
		Balance:      ext.Balance,
		Currency:     ext.Currency,
		IBAN:         ext.IBAN,
		LastSyncAt:   &syncedAt,
		CreatedAt:    syncedAt,
		UpdatedAt:    syncedAt,
	}
	if err := accounts.Create(ctx, account); err != nil {
		return nil, false, err
	}
	return account, true, nil
}

func (r *Reconciler) mergeTransactions(
	ctx context.Context,
	transactions repository.TransactionRepository,
	accountID uuid.UUID,
	txns []provider.ExternalTransaction,
	result *domain.SyncResult,
) error {
	for _, et := range txns {
		exists, err := transactions.ExistsByAccountAndExternalID(ctx, accountID, et.ExternalID)
		if err != nil {
			return err
		}
		result.TransactionsSynced++
		if exists {
			// Already imported. Never rewritten, not even when the
			// provider reports a different amount.
			continue
		}

		tx := &domain.BankTransaction{
			ID:              uuid.New(),
			AccountID:       accountID,
			ExternalID:      et.ExternalID,
			Amount:          et.Amount,
			Currency:        et.Currency,
			Description:     et.Description,
			TransactionDate: et.TransactionDate,
			ValueDate:       et.ValueDate,
			Category:        et.Category,
			CreatedAt:       result.SyncedAt,
		}
		if tx.Category == "" {
			if category, ok := r.categorize(tx); ok {
				tx.Category = category
				result.Categorized++
			}
		}
		if err := transactions.Create(ctx, tx); err != nil {
			return err
		}
		result.NewTransactions++
	}
	return nil
}
