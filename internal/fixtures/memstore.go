// Package fixtures provides in-memory test doubles for the storage layer.
// MemoryStore backs a UnitOfWork whose transaction boundary really rolls
// back, so reconciliation tests can assert all-or-nothing semantics
// without a database.
package fixtures

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

// MemoryStore holds all rows. Error fields, when set, are returned by the
// corresponding operation to simulate storage failures.
type MemoryStore struct {
	mu           sync.Mutex
	Connections  map[uuid.UUID]domain.Connection
	Accounts     map[uuid.UUID]domain.BankAccount
	Transactions map[uuid.UUID]domain.BankTransaction

	FailTransactionCreate error
	FailAccountUpdate     error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Connections:  map[uuid.UUID]domain.Connection{},
		Accounts:     map[uuid.UUID]domain.BankAccount{},
		Transactions: map[uuid.UUID]domain.BankTransaction{},
	}
}

// SeedConnection inserts a connection and returns it.
func (s *MemoryStore) SeedConnection(conn domain.Connection) domain.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Connections[conn.ID] = conn
	return conn
}

// AccountCount reports the number of stored accounts.
func (s *MemoryStore) AccountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Accounts)
}

// TransactionCount reports the number of stored transactions.
func (s *MemoryStore) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Transactions)
}

// MemoryUoW is a UnitOfWork over a MemoryStore. Do snapshots the maps and
// restores them when fn errors, mirroring a rolled-back DB transaction.
type MemoryUoW struct {
	store *MemoryStore
}

// NewMemoryUoW wraps a store in a UnitOfWork.
func NewMemoryUoW(store *MemoryStore) *MemoryUoW {
	return &MemoryUoW{store: store}
}

// Do runs fn under the store lock; on error every map is restored to its
// pre-transaction state.
func (u *MemoryUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	connSnap := cloneMap(u.store.Connections)
	acctSnap := cloneMap(u.store.Accounts)
	txSnap := cloneMap(u.store.Transactions)

	if err := fn(u); err != nil {
		u.store.Connections = connSnap
		u.store.Accounts = acctSnap
		u.store.Transactions = txSnap
		return err
	}
	return nil
}

// GetRepository resolves a repository by interface type.
func (u *MemoryUoW) GetRepository(repoType reflect.Type) (any, error) {
	switch repoType {
	case reflect.TypeOf((*repository.ConnectionRepository)(nil)).Elem():
		return &memConnectionRepo{store: u.store}, nil
	case reflect.TypeOf((*repository.AccountRepository)(nil)).Elem():
		return &memAccountRepo{store: u.store}, nil
	case reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem():
		return &memTransactionRepo{store: u.store}, nil
	}
	return nil, fmt.Errorf("unsupported repository type: %v", repoType)
}

// ConnectionRepository returns the connection repository.
func (u *MemoryUoW) ConnectionRepository() (repository.ConnectionRepository, error) {
	return &memConnectionRepo{store: u.store}, nil
}

// AccountRepository returns the account repository.
func (u *MemoryUoW) AccountRepository() (repository.AccountRepository, error) {
	return &memAccountRepo{store: u.store}, nil
}

// TransactionRepository returns the transaction repository.
func (u *MemoryUoW) TransactionRepository() (repository.TransactionRepository, error) {
	return &memTransactionRepo{store: u.store}, nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memConnectionRepo struct{ store *MemoryStore }

func (r *memConnectionRepo) Create(_ context.Context, conn *domain.Connection) error {
	r.store.Connections[conn.ID] = *conn
	return nil
}

func (r *memConnectionRepo) Get(_ context.Context, id uuid.UUID) (*domain.Connection, error) {
	conn, ok := r.store.Connections[id]
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return &conn, nil
}

func (r *memConnectionRepo) GetByExternalID(_ context.Context, externalID string) (*domain.Connection, error) {
	for _, conn := range r.store.Connections {
		if conn.ExternalID == externalID {
			c := conn
			return &c, nil
		}
	}
	return nil, domain.ErrConnectionNotFound
}

func (r *memConnectionRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Connection, error) {
	var out []*domain.Connection
	for _, conn := range r.store.Connections {
		if conn.OwnerID == ownerID {
			c := conn
			out = append(out, &c)
		}
	}
	sortConnections(out)
	return out, nil
}

func (r *memConnectionRepo) ListNeedingSync(_ context.Context, cutoff time.Time, limit int) ([]*domain.Connection, error) {
	var out []*domain.Connection
	for _, conn := range r.store.Connections {
		if conn.Status != domain.ConnectionActive {
			continue
		}
		if conn.LastSyncAt == nil || conn.LastSyncAt.Before(cutoff) {
			c := conn
			out = append(out, &c)
		}
	}
	sortConnections(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memConnectionRepo) ListByStatusOlderThan(_ context.Context, status domain.ConnectionStatus, cutoff time.Time) ([]*domain.Connection, error) {
	var out []*domain.Connection
	for _, conn := range r.store.Connections {
		if conn.Status == status && conn.UpdatedAt.Before(cutoff) {
			c := conn
			out = append(out, &c)
		}
	}
	sortConnections(out)
	return out, nil
}

func (r *memConnectionRepo) CountByStatus(_ context.Context) (map[domain.ConnectionStatus]int64, error) {
	out := map[domain.ConnectionStatus]int64{}
	for _, conn := range r.store.Connections {
		out[conn.Status]++
	}
	return out, nil
}

func (r *memConnectionRepo) Update(_ context.Context, conn *domain.Connection) error {
	if _, ok := r.store.Connections[conn.ID]; !ok {
		return domain.ErrConnectionNotFound
	}
	r.store.Connections[conn.ID] = *conn
	return nil
}

func (r *memConnectionRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.Connections[id]; !ok {
		return domain.ErrConnectionNotFound
	}
	delete(r.store.Connections, id)
	for accountID, account := range r.store.Accounts {
		if account.ConnectionID != id {
			continue
		}
		delete(r.store.Accounts, accountID)
		for txID, tx := range r.store.Transactions {
			if tx.AccountID == accountID {
				delete(r.store.Transactions, txID)
			}
		}
	}
	return nil
}

type memAccountRepo struct{ store *MemoryStore }

func (r *memAccountRepo) Create(_ context.Context, account *domain.BankAccount) error {
	r.store.Accounts[account.ID] = *account
	return nil
}

func (r *memAccountRepo) Get(_ context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	account, ok := r.store.Accounts[id]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (r *memAccountRepo) GetByConnectionAndExternalID(_ context.Context, connectionID uuid.UUID, externalID string) (*domain.BankAccount, error) {
	for _, account := range r.store.Accounts {
		if account.ConnectionID == connectionID && account.ExternalID == externalID {
			a := account
			return &a, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) ListByConnection(_ context.Context, connectionID uuid.UUID) ([]*domain.BankAccount, error) {
	var out []*domain.BankAccount
	for _, account := range r.store.Accounts {
		if account.ConnectionID == connectionID {
			a := account
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (r *memAccountRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.BankAccount, error) {
	var out []*domain.BankAccount
	for _, account := range r.store.Accounts {
		conn, ok := r.store.Connections[account.ConnectionID]
		if ok && conn.OwnerID == ownerID {
			a := account
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out, nil
}

func (r *memAccountRepo) Update(_ context.Context, account *domain.BankAccount) error {
	if err := r.store.FailAccountUpdate; err != nil {
		return err
	}
	r.store.Accounts[account.ID] = *account
	return nil
}

type memTransactionRepo struct{ store *MemoryStore }

func (r *memTransactionRepo) Create(_ context.Context, tx *domain.BankTransaction) error {
	if err := r.store.FailTransactionCreate; err != nil {
		return err
	}
	r.store.Transactions[tx.ID] = *tx
	return nil
}

func (r *memTransactionRepo) ExistsByAccountAndExternalID(_ context.Context, accountID uuid.UUID, externalID string) (bool, error) {
	for _, tx := range r.store.Transactions {
		if tx.AccountID == accountID && tx.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memTransactionRepo) ListByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]*domain.BankTransaction, error) {
	var out []*domain.BankTransaction
	for _, tx := range r.store.Transactions {
		if tx.AccountID == accountID {
			t := tx
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionDate.After(out[j].TransactionDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortConnections(conns []*domain.Connection) {
	sort.Slice(conns, func(i, j int) bool {
		li, lj := conns[i].LastSyncAt, conns[j].LastSyncAt
		switch {
		case li == nil && lj == nil:
			return conns[i].CreatedAt.Before(conns[j].CreatedAt)
		case li == nil:
			return true
		case lj == nil:
			return false
		default:
			return li.Before(*lj)
		}
	})
}
