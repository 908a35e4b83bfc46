package repository

import (
	"context"
	"reflect"
)

// UnitOfWork defines the contract for transactional work and type-safe
// repository access.
//
// GetRepository lives on the UnitOfWork so every repository obtained inside
// Do is bound to the same DB session. Reconciliation relies on this: the
// connection, account and transaction writes of one sync commit or roll
// back together.
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// If the function returns an error, the transaction is rolled back.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns a repository of the requested interface type,
	// bound to the current transaction/session.
	// Example:
	//   repoAny, err := uow.GetRepository(reflect.TypeOf((*ConnectionRepository)(nil)).Elem())
	//   repo := repoAny.(ConnectionRepository)
	GetRepository(repoType reflect.Type) (any, error)

	// Type-safe convenience accessors.
	ConnectionRepository() (ConnectionRepository, error)
	AccountRepository() (AccountRepository, error)
	TransactionRepository() (TransactionRepository, error)
}
