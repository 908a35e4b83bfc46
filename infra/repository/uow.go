package repository

import (
	"context"
	"fmt"
	"reflect"

	"gorm.io/gorm"

	"github.com/mosaiq/bankfeed/pkg/repository"
)

// UoW provides the transaction boundary and repository access in one
// abstraction. Repositories handed out inside Do share the transaction
// session, so one reconciliation's connection, account and transaction
// writes commit or roll back together.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*repository.ConnectionRepository)(nil)).Elem(): func(db *gorm.DB) any {
				return NewConnectionRepository(db)
			},
			reflect.TypeOf((*repository.AccountRepository)(nil)).Elem(): func(db *gorm.DB) any {
				return NewAccountRepository(db)
			},
			reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem(): func(db *gorm.DB) any {
				return NewTransactionRepository(db)
			},
		},
	}
}

// Do runs fn in a transaction boundary, providing a UoW bound to it.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry})
	})
}

// GetRepository returns a repository of the requested interface type bound
// to the current transaction session.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	return constructor(u.session()), nil
}

// ConnectionRepository returns the connection repository for the current
// session.
func (u *UoW) ConnectionRepository() (repository.ConnectionRepository, error) {
	repo, err := u.GetRepository(reflect.TypeOf((*repository.ConnectionRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repo.(repository.ConnectionRepository), nil
}

// AccountRepository returns the account repository for the current session.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	repo, err := u.GetRepository(reflect.TypeOf((*repository.AccountRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repo.(repository.AccountRepository), nil
}

// TransactionRepository returns the transaction repository for the current
// session.
func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	repo, err := u.GetRepository(reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repo.(repository.TransactionRepository), nil
}

// Outside Do there is no transaction; fall back to the root session so
// read-only callers can still use the repositories.
func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}
