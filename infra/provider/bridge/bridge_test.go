package bridge

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
)

func newTestAdapter(t *testing.T, handler http.Handler) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(config.BankProvider{
		ApiUrl:       server.URL,
		ClientId:     "client",
		ClientSecret: "secret",
		Enabled:      true,
		HTTPTimeout:  2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func withToken(mux *http.ServeMux) *http.ServeMux {
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`)) //nolint:errcheck
	})
	return mux
}

func TestListAccounts_ConvertsMinorUnits(t *testing.T) {
	mux := withToken(http.NewServeMux())
	mux.HandleFunc("GET /items/42/accounts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"resources":[
			{"id":7,"name":"Compte Courant","type":"checking","balance":125040,"currency_code":"EUR","iban":"FR76123"}
		]}`)) //nolint:errcheck
	})

	a := newTestAdapter(t, mux)
	accounts, err := a.ListAccounts(context.Background(), "bridge_42_user-uuid")

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "7", accounts[0].ExternalID)
	assert.Equal(t, "CHECKING", accounts[0].Type)
	assert.True(t, accounts[0].Balance.Equal(decimal.RequireFromString("1250.40")),
		"125040 cents must normalize to 1250.40, got %s", accounts[0].Balance)
}

func TestListTransactions_ConvertsMinorUnits(t *testing.T) {
	mux := withToken(http.NewServeMux())
	mux.HandleFunc("GET /accounts/7/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		assert.NotEmpty(t, r.URL.Query().Get("until"))
		w.Write([]byte(`{"resources":[
			{"id":1,"amount":-4210,"description":"CB MONOPRIX","date":"2026-08-20"},
			{"id":2,"amount":230000,"description":"VIREMENT SALAIRE","date":"2026-08-28"}
		]}`)) //nolint:errcheck
	})

	a := newTestAdapter(t, mux)
	txns, err := a.ListTransactions(context.Background(), "bridge_42_user-uuid", "7", 30)

	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Equal(decimal.RequireFromString("-42.10")))
	assert.True(t, txns[1].Amount.Equal(decimal.RequireFromString("2300.00")))
	assert.Equal(t, 20, txns[0].TransactionDate.Day())
	require.NotNil(t, txns[0].ValueDate)
}

func TestConfirm_ReportsConnectedStatus(t *testing.T) {
	mux := withToken(http.NewServeMux())
	mux.HandleFunc("POST /items/42/mfa", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"id":42,"status":"CONNECTED"}`)) //nolint:errcheck
	})

	a := newTestAdapter(t, mux)
	ok, err := a.Confirm(context.Background(), "bridge_42_user-uuid", "123456")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthFailureClassified(t *testing.T) {
	mux := withToken(http.NewServeMux())
	mux.HandleFunc("GET /items/42/accounts", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	a := newTestAdapter(t, mux)
	_, err := a.ListAccounts(context.Background(), "bridge_42_user-uuid")

	assert.ErrorIs(t, err, domain.ErrProviderAuth)
}

func TestRateLimitClassified(t *testing.T) {
	mux := withToken(http.NewServeMux())
	mux.HandleFunc("GET /items/42/accounts", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	a := newTestAdapter(t, mux)
	_, err := a.ListAccounts(context.Background(), "bridge_42_user-uuid")

	assert.ErrorIs(t, err, domain.ErrRateLimitExceeded)
}

func TestDisabledAdapterFailsFast(t *testing.T) {
	a := New(config.BankProvider{Enabled: false}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	_, err := a.Initiate(ctx, provider.Credentials{Login: "u", Password: "p"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	assert.False(t, provider.IsRetryable(err))

	_, err = a.ListAccounts(ctx, "bridge_42_user-uuid")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)

	_, err = a.ListTransactions(ctx, "bridge_42_user-uuid", "7", 30)
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)

	_, err = a.Revoke(ctx, "bridge_42_user-uuid")
	assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
}
