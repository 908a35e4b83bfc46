package repository

import (
	"context"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mosaiq/bankfeed/pkg/repository"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestUoW_DoAndGetRepository(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := uow.Do(context.Background(), func(txUow repository.UnitOfWork) error {
		repoAny, err := txUow.GetRepository(reflect.TypeOf((*repository.ConnectionRepository)(nil)).Elem())
		require.NoError(t, err)
		_, ok := repoAny.(*connectionRepository)
		assert.True(t, ok)

		repoAny, err = txUow.GetRepository(reflect.TypeOf((*repository.AccountRepository)(nil)).Elem())
		require.NoError(t, err)
		_, ok = repoAny.(*accountRepository)
		assert.True(t, ok)

		repoAny, err = txUow.GetRepository(reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem())
		require.NoError(t, err)
		_, ok = repoAny.(*transactionRepository)
		assert.True(t, ok)

		return nil
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUoW_TypeSafeMethods(t *testing.T) {
	db, _ := newMockDB(t)
	uow := NewUoW(db)

	connectionRepo, err := uow.ConnectionRepository()
	require.NoError(t, err)
	assert.NotNil(t, connectionRepo)

	accountRepo, err := uow.AccountRepository()
	require.NoError(t, err)
	assert.NotNil(t, accountRepo)

	transactionRepo, err := uow.TransactionRepository()
	require.NoError(t, err)
	assert.NotNil(t, transactionRepo)
}

func TestUoW_UnknownRepositoryType(t *testing.T) {
	db, _ := newMockDB(t)
	uow := NewUoW(db)

	_, err := uow.GetRepository(reflect.TypeOf((*error)(nil)).Elem())
	assert.Error(t, err)
}

func TestUoW_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUoW(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.Do(context.Background(), func(repository.UnitOfWork) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
