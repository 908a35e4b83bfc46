// Package budgetinsight implements the Budget Insight (Powens) aggregation
// adapter. API documentation: https://docs.budget-insight.com/
package budgetinsight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mosaiq/bankfeed/infra/provider/internal/httpapi"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
)

const idPrefix = "bi_"

// Adapter talks to the Budget Insight API.
type Adapter struct {
	cfg    config.BankProvider
	client *httpapi.Client
	logger *slog.Logger
}

// New builds the adapter.
func New(cfg config.BankProvider, logger *slog.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: httpapi.New(cfg, logger),
		logger: logger.With("provider", "budget-insight"),
	}
}

// Name returns the provider code.
func (a *Adapter) Name() string { return "budget-insight" }

// IDPrefix returns the external id prefix this adapter issues.
func (a *Adapter) IDPrefix() string { return idPrefix }

// disabled is what every operation returns when the integration is
// switched off in configuration. Non-retryable, so callers fail fast
// instead of burning retries against a provider that is not there.
func (a *Adapter) disabled() error {
	return fmt.Errorf("%w: budget-insight disabled", domain.ErrUnsupportedProvider)
}

// Initiate obtains an API token, creates a scoped user and opens a bank
// connection with the supplied credentials. Returns the prefixed external
// connection id.
func (a *Adapter) Initiate(ctx context.Context, creds provider.Credentials) (string, error) {
	if !a.cfg.Enabled {
		return "", a.disabled()
	}
	a.logger.Info("initiating connection", "login", creds.Login)

	token, err := a.client.Token(ctx)
	if err != nil {
		return "", err
	}

	var user struct {
		ID json.Number `json:"id"`
	}
	err = a.client.DoJSON(ctx, http.MethodPost, "/users", token,
		map[string]any{"login": fmt.Sprintf("scoped_user_%d", time.Now().UnixNano())}, &user)
	if err != nil {
		return "", err
	}

	var conn struct {
		ID json.Number `json:"id"`
	}
	err = a.client.DoJSON(ctx, http.MethodPost, "/users/"+user.ID.String()+"/connections", token,
		map[string]any{"login": creds.Login, "password": creds.Password}, &conn)
	if err != nil {
		return "", err
	}

	externalID := idPrefix + conn.ID.String() + ":" + user.ID.String()
	a.logger.Info("connection initiated", "external_id", externalID)
	return externalID, nil
}

// Confirm completes strong authentication. An invalid or expired code
// reads as false without an error.
func (a *Adapter) Confirm(ctx context.Context, externalID, code string) (bool, error) {
	if !a.cfg.Enabled {
		return false, a.disabled()
	}
	connID, userID := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return false, err
	}

	path := fmt.Sprintf("/users/%s/connections/%s/confirm", userID, connID)
	status, err := a.client.DoStatus(ctx, http.MethodPost, path, token, map[string]any{"code": code})
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// ListAccounts returns the user's accounts. Budget Insight reports
// balances in currency units already.
func (a *Adapter) ListAccounts(ctx context.Context, externalID string) ([]provider.ExternalAccount, error) {
	if !a.cfg.Enabled {
		return nil, a.disabled()
	}
	_, userID := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Accounts []struct {
			ID       json.Number     `json:"id"`
			Name     string          `json:"name"`
			Type     string          `json:"type"`
			Balance  decimal.Decimal `json:"balance"`
			Currency string          `json:"currency"`
			IBAN     string          `json:"iban"`
		} `json:"accounts"`
	}
	err = a.client.DoJSON(ctx, http.MethodGet, "/users/"+userID+"/accounts", token, nil, &body)
	if err != nil {
		return nil, err
	}

	accounts := make([]provider.ExternalAccount, 0, len(body.Accounts))
	for _, acc := range body.Accounts {
		accounts = append(accounts, provider.ExternalAccount{
			ExternalID: acc.ID.String(),
			Name:       acc.Name,
			Type:       acc.Type,
			Balance:    acc.Balance,
			Currency:   acc.Currency,
			IBAN:       acc.IBAN,
		})
	}
	return accounts, nil
}

// ListTransactions returns one account's transactions over the lookback
// window.
func (a *Adapter) ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error) {
	if !a.cfg.Enabled {
		return nil, a.disabled()
	}
	_, userID := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return nil, err
	}

	minDate := time.Now().UTC().AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	path := fmt.Sprintf("/users/%s/accounts/%s/transactions?min_date=%s",
		userID, accountID, url.QueryEscape(minDate))

	var body struct {
		Transactions []struct {
			ID       json.Number     `json:"id"`
			Value    decimal.Decimal `json:"value"`
			Wording  string          `json:"wording"`
			Date     string          `json:"date"`
			Category string          `json:"category"`
		} `json:"transactions"`
	}
	if err := a.client.DoJSON(ctx, http.MethodGet, path, token, nil, &body); err != nil {
		return nil, err
	}

	txns := make([]provider.ExternalTransaction, 0, len(body.Transactions))
	for _, tx := range body.Transactions {
		date, err := time.Parse("2006-01-02", tx.Date)
		if err != nil {
			a.logger.Warn("skipping transaction with unparseable date",
				"transaction_id", tx.ID.String(), "date", tx.Date)
			continue
		}
		txns = append(txns, provider.ExternalTransaction{
			ExternalID:      tx.ID.String(),
			Amount:          tx.Value,
			Currency:        "EUR",
			Description:     tx.Wording,
			TransactionDate: date,
			Category:        tx.Category,
		})
	}
	return txns, nil
}

// CheckHealth reports whether the provider still considers the connection
// valid.
func (a *Adapter) CheckHealth(ctx context.Context, externalID string) bool {
	if !a.cfg.Enabled {
		return false
	}
	connID, userID := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return false
	}

	var body struct {
		State string `json:"state"`
	}
	path := fmt.Sprintf("/users/%s/connections/%s", userID, connID)
	if err := a.client.DoJSON(ctx, http.MethodGet, path, token, nil, &body); err != nil {
		a.logger.Warn("health check failed", "error", err)
		return false
	}
	return body.State == "valid"
}

// Revoke deletes the connection at the provider.
func (a *Adapter) Revoke(ctx context.Context, externalID string) (bool, error) {
	if !a.cfg.Enabled {
		return false, a.disabled()
	}
	connID, userID := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return false, err
	}

	path := fmt.Sprintf("/users/%s/connections/%s", userID, connID)
	status, err := a.client.DoStatus(ctx, http.MethodDelete, path, token, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK || status == http.StatusNoContent, nil
}

// splitExternalID decomposes "bi_<connectionID>:<userID>".
func splitExternalID(externalID string) (connID, userID string) {
	raw := strings.TrimPrefix(externalID, idPrefix)
	connID, userID, ok := strings.Cut(raw, ":")
	if !ok {
		return raw, raw
	}
	return connID, userID
}
