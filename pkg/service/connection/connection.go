// Package connection exposes the user-facing operations on bank
// connections: linking, confirming, manual sync, health checks and
// revocation. Every operation that takes a connection id verifies the
// caller owns it.
package connection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/mosaiq/bankfeed/pkg/registry"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

// Aggregator is the slice of the aggregation router the service needs.
type Aggregator interface {
	Initiate(ctx context.Context, providerCode string, creds provider.Credentials) (string, error)
	Confirm(ctx context.Context, externalID, code string) (bool, error)
	CheckHealth(ctx context.Context, externalID string) bool
	Revoke(ctx context.Context, externalID string) (bool, error)
	IsSupported(code string) bool
	Providers() []registry.Meta
}

// Syncer reconciles one connection. Satisfied by *sync.Reconciler.
type Syncer interface {
	Reconcile(ctx context.Context, conn *domain.Connection) domain.SyncResult
}

// Service orchestrates connection lifecycle against the aggregation
// router and local storage.
type Service struct {
	uow        repository.UnitOfWork
	aggregator Aggregator
	syncer     Syncer
	logger     *slog.Logger
}

// New builds a connection Service.
func New(
	uow repository.UnitOfWork,
	aggregator Aggregator,
	syncer Syncer,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:        uow,
		aggregator: aggregator,
		syncer:     syncer,
		logger:     logger.With("component", "connection_service"),
	}
}

// Initiate links a new bank for the owner through the named provider. The
// returned connection is PENDING until confirmed.
func (s *Service) Initiate(ctx context.Context, ownerID uuid.UUID, providerCode string, creds provider.Credentials) (*domain.Connection, error) {
	log := s.logger.With("owner_id", ownerID, "provider", providerCode)
	if !s.aggregator.IsSupported(providerCode) {
		log.Warn("initiate rejected, unsupported provider")
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, providerCode)
	}

	externalID, err := s.aggregator.Initiate(ctx, providerCode, creds)
	if err != nil {
		log.Error("provider initiate failed", "error", err)
		return nil, err
	}

	conn := domain.NewConnection(ownerID, providerCode, externalID)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		return repo.Create(ctx, conn)
	})
	if err != nil {
		return nil, err
	}
	log.Info("connection initiated", "connection_id", conn.ID)
	return conn, nil
}

// Confirm completes strong authentication for a pending connection. On
// success the connection becomes ACTIVE and an initial reconcile pulls its
// accounts in; an invalid or expired code returns false without an error.
func (s *Service) Confirm(ctx context.Context, ownerID, connectionID uuid.UUID, code string) (bool, error) {
	conn, err := s.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return false, err
	}

	ok, err := s.aggregator.Confirm(ctx, conn.ExternalID, code)
	if err != nil {
		s.logger.Error("provider confirm failed", "connection_id", connectionID, "error", err)
		return false, err
	}
	if !ok {
		s.logger.Warn("confirmation code rejected", "connection_id", connectionID)
		return false, nil
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conn.Status = domain.ConnectionActive
		return repo.Update(ctx, conn)
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("connection confirmed", "connection_id", connectionID)

	// Pull accounts in right away so the connection is usable without
	// waiting for the next sweep. A failed first sync does not undo the
	// confirmation.
	if result := s.syncer.Reconcile(ctx, conn); !result.Success {
		s.logger.Warn("initial sync after confirmation failed",
			"connection_id", connectionID,
			"errors", result.Errors)
	}
	return true, nil
}

// Sync reconciles one connection on demand. Only ACTIVE connections can
// be synced.
func (s *Service) Sync(ctx context.Context, ownerID, connectionID uuid.UUID) (domain.SyncResult, error) {
	conn, err := s.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return domain.SyncResult{}, err
	}
	if conn.Status != domain.ConnectionActive {
		return domain.SyncResult{}, fmt.Errorf("%w: status %s", domain.ErrConnectionNotActive, conn.Status)
	}
	return s.syncer.Reconcile(ctx, conn), nil
}

// SyncAll reconciles every ACTIVE connection of the owner, one at a time.
// A failing connection yields a failed result in the slice and never stops
// the others.
func (s *Service) SyncAll(ctx context.Context, ownerID uuid.UUID) ([]domain.SyncResult, error) {
	var conns []*domain.Connection
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conns, err = repo.ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	results := make([]domain.SyncResult, 0, len(conns))
	for _, conn := range conns {
		if conn.Status != domain.ConnectionActive {
			continue
		}
		results = append(results, s.syncer.Reconcile(ctx, conn))
	}
	return results, nil
}

// CheckHealth probes the provider for one connection. Unreachable or
// policy-rejected providers read as unhealthy rather than erroring.
func (s *Service) CheckHealth(ctx context.Context, ownerID, connectionID uuid.UUID) (bool, error) {
	conn, err := s.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return false, err
	}
	return s.aggregator.CheckHealth(ctx, conn.ExternalID), nil
}

// Revoke tears a connection down: the provider-side authorization is
// revoked, then the local row and all its accounts and transactions are
// removed.
func (s *Service) Revoke(ctx context.Context, ownerID, connectionID uuid.UUID) error {
	conn, err := s.ownedConnection(ctx, ownerID, connectionID)
	if err != nil {
		return err
	}

	if _, err := s.aggregator.Revoke(ctx, conn.ExternalID); err != nil {
		s.logger.Error("provider revoke failed", "connection_id", connectionID, "error", err)
		return err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		return repo.Delete(ctx, conn.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("connection revoked", "connection_id", connectionID)
	return nil
}

// Get returns one of the owner's connections.
func (s *Service) Get(ctx context.Context, ownerID, connectionID uuid.UUID) (*domain.Connection, error) {
	return s.ownedConnection(ctx, ownerID, connectionID)
}

// List returns all of the owner's connections.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Connection, error) {
	var conns []*domain.Connection
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conns, err = repo.ListByOwner(ctx, ownerID)
		return err
	})
	return conns, err
}

// ListAccounts returns every synced account across the owner's
// connections.
func (s *Service) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error) {
	var accounts []*domain.BankAccount
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		accounts, err = repo.ListByOwner(ctx, ownerID)
		return err
	})
	return accounts, err
}

// ListTransactions returns an account's transactions, newest first,
// after verifying the account belongs to the owner.
func (s *Service) ListTransactions(ctx context.Context, ownerID, accountID uuid.UUID, limit int) ([]*domain.BankTransaction, error) {
	var txns []*domain.BankTransaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		account, err := accounts.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrConnectionNotFound
		}

		connections, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conn, err := connections.Get(ctx, account.ConnectionID)
		if err != nil {
			return err
		}
		if conn.OwnerID != ownerID {
			return domain.ErrNotOwner
		}

		transactions, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		txns, err = transactions.ListByAccount(ctx, accountID, limit)
		return err
	})
	return txns, err
}

// ListProviders returns the catalog of registered providers.
func (s *Service) ListProviders() []registry.Meta {
	return s.aggregator.Providers()
}

func (s *Service) ownedConnection(ctx context.Context, ownerID, connectionID uuid.UUID) (*domain.Connection, error) {
	var conn *domain.Connection
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conn, err = repo.Get(ctx, connectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if conn.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return conn, nil
}
