package connection_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiq/bankfeed/internal/fixtures"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
	"github.com/mosaiq/bankfeed/pkg/registry"
	"github.com/mosaiq/bankfeed/pkg/service/connection"
)

type stubAggregator struct {
	supported   map[string]bool
	initiateID  string
	initiateErr error
	confirmOK   bool
	confirmErr  error
	healthy     bool
	revokeErr   error
	revoked     []string
}

func (a *stubAggregator) Initiate(_ context.Context, _ string, _ provider.Credentials) (string, error) {
	return a.initiateID, a.initiateErr
}

func (a *stubAggregator) Confirm(_ context.Context, _, _ string) (bool, error) {
	return a.confirmOK, a.confirmErr
}

func (a *stubAggregator) CheckHealth(_ context.Context, _ string) bool { return a.healthy }

func (a *stubAggregator) Revoke(_ context.Context, externalID string) (bool, error) {
	if a.revokeErr != nil {
		return false, a.revokeErr
	}
	a.revoked = append(a.revoked, externalID)
	return true, nil
}

func (a *stubAggregator) IsSupported(code string) bool { return a.supported[code] }

func (a *stubAggregator) Providers() []registry.Meta {
	return []registry.Meta{{Code: "mock", DisplayName: "Mock Bank"}}
}

type stubSyncer struct {
	synced []uuid.UUID
}

func (s *stubSyncer) Reconcile(_ context.Context, conn *domain.Connection) domain.SyncResult {
	s.synced = append(s.synced, conn.ID)
	return domain.SyncResult{ConnectionID: conn.ID, Success: true, SyncedAt: time.Now().UTC()}
}

func newTestService(store *fixtures.MemoryStore, agg *stubAggregator, syncer *stubSyncer) *connection.Service {
	return connection.New(
		fixtures.NewMemoryUoW(store),
		agg,
		syncer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func seedOwnedConnection(store *fixtures.MemoryStore, ownerID uuid.UUID, status domain.ConnectionStatus) domain.Connection {
	conn := domain.NewConnection(ownerID, "mock", "mock_"+uuid.NewString())
	conn.Status = status
	return store.SeedConnection(*conn)
}

func TestInitiate_CreatesPendingConnection(t *testing.T) {
	store := fixtures.NewMemoryStore()
	agg := &stubAggregator{supported: map[string]bool{"mock": true}, initiateID: "mock_conn_1"}
	svc := newTestService(store, agg, &stubSyncer{})

	ownerID := uuid.New()
	conn, err := svc.Initiate(context.Background(), ownerID, "mock", provider.Credentials{Login: "u", Password: "p"})

	require.NoError(t, err)
	assert.Equal(t, domain.ConnectionPending, conn.Status)
	assert.Equal(t, "mock_conn_1", conn.ExternalID)
	assert.Equal(t, ownerID, conn.OwnerID)
	assert.Contains(t, store.Connections, conn.ID)
}

func TestInitiate_UnsupportedProviderRejected(t *testing.T) {
	svc := newTestService(fixtures.NewMemoryStore(), &stubAggregator{supported: map[string]bool{}}, &stubSyncer{})

	_, err := svc.Initiate(context.Background(), uuid.New(), "linxo", provider.Credentials{})

	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}

func TestConfirm_ActivatesConnection(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionPending)
	svc := newTestService(store, &stubAggregator{confirmOK: true}, &stubSyncer{})

	ok, err := svc.Confirm(context.Background(), ownerID, conn.ID, "123456")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.ConnectionActive, store.Connections[conn.ID].Status)
}

func TestConfirm_RunsInitialSync(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionPending)
	syncer := &stubSyncer{}
	svc := newTestService(store, &stubAggregator{confirmOK: true}, syncer)

	ok, err := svc.Confirm(context.Background(), ownerID, conn.ID, "123456")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []uuid.UUID{conn.ID}, syncer.synced)
}

func TestConfirm_RejectedCodeSkipsInitialSync(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionPending)
	syncer := &stubSyncer{}
	svc := newTestService(store, &stubAggregator{confirmOK: false}, syncer)

	ok, err := svc.Confirm(context.Background(), ownerID, conn.ID, "000000")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, syncer.synced)
}

func TestConfirm_InvalidCodeLeavesConnectionPending(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionPending)
	svc := newTestService(store, &stubAggregator{confirmOK: false}, &stubSyncer{})

	ok, err := svc.Confirm(context.Background(), ownerID, conn.ID, "000000")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.ConnectionPending, store.Connections[conn.ID].Status)
}

func TestSync_RejectsForeignConnection(t *testing.T) {
	store := fixtures.NewMemoryStore()
	conn := seedOwnedConnection(store, uuid.New(), domain.ConnectionActive)
	syncer := &stubSyncer{}
	svc := newTestService(store, &stubAggregator{}, syncer)

	_, err := svc.Sync(context.Background(), uuid.New(), conn.ID)

	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.Empty(t, syncer.synced)
}

func TestSync_RejectsInactiveConnection(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionPending)
	svc := newTestService(store, &stubAggregator{}, &stubSyncer{})

	_, err := svc.Sync(context.Background(), ownerID, conn.ID)

	assert.ErrorIs(t, err, domain.ErrConnectionNotActive)
}

func TestSyncAll_SkipsNonActiveConnections(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	active := seedOwnedConnection(store, ownerID, domain.ConnectionActive)
	seedOwnedConnection(store, ownerID, domain.ConnectionPending)
	seedOwnedConnection(store, ownerID, domain.ConnectionInactive)
	seedOwnedConnection(store, uuid.New(), domain.ConnectionActive)

	syncer := &stubSyncer{}
	svc := newTestService(store, &stubAggregator{}, syncer)

	results, err := svc.SyncAll(context.Background(), ownerID)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []uuid.UUID{active.ID}, syncer.synced)
}

func TestRevoke_DeletesConnectionAndCascades(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionActive)

	account := domain.BankAccount{
		ID:           uuid.New(),
		ConnectionID: conn.ID,
		ExternalID:   "acc_1",
		Balance:      decimal.New(100, 0),
	}
	store.Accounts[account.ID] = account
	tx := domain.BankTransaction{ID: uuid.New(), AccountID: account.ID, ExternalID: "tx_1"}
	store.Transactions[tx.ID] = tx

	agg := &stubAggregator{}
	svc := newTestService(store, agg, &stubSyncer{})

	require.NoError(t, svc.Revoke(context.Background(), ownerID, conn.ID))

	assert.NotContains(t, store.Connections, conn.ID)
	assert.Equal(t, 0, store.AccountCount())
	assert.Equal(t, 0, store.TransactionCount())
	assert.Equal(t, []string{conn.ExternalID}, agg.revoked)
}

func TestRevoke_ProviderFailureKeepsLocalRow(t *testing.T) {
	store := fixtures.NewMemoryStore()
	ownerID := uuid.New()
	conn := seedOwnedConnection(store, ownerID, domain.ConnectionActive)
	svc := newTestService(store, &stubAggregator{revokeErr: domain.ErrProviderUnavailable}, &stubSyncer{})

	err := svc.Revoke(context.Background(), ownerID, conn.ID)

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Contains(t, store.Connections, conn.ID)
}

func TestListTransactions_EnforcesOwnership(t *testing.T) {
	store := fixtures.NewMemoryStore()
	conn := seedOwnedConnection(store, uuid.New(), domain.ConnectionActive)
	account := domain.BankAccount{ID: uuid.New(), ConnectionID: conn.ID, ExternalID: "acc_1"}
	store.Accounts[account.ID] = account

	svc := newTestService(store, &stubAggregator{}, &stubSyncer{})

	_, err := svc.ListTransactions(context.Background(), uuid.New(), account.ID, 10)

	assert.ErrorIs(t, err, domain.ErrNotOwner)
}
