// Package bridge implements the Bridge API aggregation adapter. Bridge
// reports all monetary amounts in minor units (cents); this adapter
// normalizes them to currency units before anything downstream sees them.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mosaiq/bankfeed/infra/provider/internal/httpapi"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/provider"
)

const idPrefix = "bridge_"

var hundred = decimal.NewFromInt(100)

// Adapter talks to the Bridge API.
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
		logger: logger.With("provider", "bridge"),
	}
}

// Name returns the provider code.
func (a *Adapter) Name() string { return "bridge" }

// IDPrefix returns the external id prefix this adapter issues.
func (a *Adapter) IDPrefix() string { return idPrefix }

// disabled is what every operation returns when the integration is
// switched off in configuration. Non-retryable, so callers fail fast
// instead of burning retries against a provider that is not there.
func (a *Adapter) disabled() error {
	return fmt.Errorf("%w: bridge disabled", domain.ErrUnsupportedProvider)
}

// Initiate creates a Bridge user and an item (their name for a bank
// connection). The external id encodes both: "bridge_<itemID>_<userID>".
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
		UUID string `json:"uuid"`
	}
	err = a.client.DoJSON(ctx, http.MethodPost, "/users", token,
		map[string]any{"email": fmt.Sprintf("user_%d@bankfeed.local", time.Now().UnixNano())}, &user)
	if err != nil {
		return "", err
	}

	var item struct {
		ID json.Number `json:"id"`
	}
	err = a.client.DoJSON(ctx, http.MethodPost, "/items", token,
		map[string]any{"user_uuid": user.UUID, "login": creds.Login, "password": creds.Password}, &item)
	if err != nil {
		return "", err
	}

	externalID := idPrefix + item.ID.String() + "_" + user.UUID
	a.logger.Info("connection initiated", "external_id", externalID)
	return externalID, nil
}

// Confirm answers the item's MFA challenge. The connection reads as
// confirmed once Bridge reports it CONNECTED or already SYNCING.
func (a *Adapter) Confirm(ctx context.Context, externalID, code string) (bool, error) {
	if !a.cfg.Enabled {
		return false, a.disabled()
	}
	itemID, _ := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return false, err
	}

	body := map[string]any{}
	if strings.TrimSpace(code) != "" {
		body["challenge_solution"] = code
	}

	var item struct {
		Status string `json:"status"`
	}
	err = a.client.DoJSON(ctx, http.MethodPost, "/items/"+itemID+"/mfa", token, body, &item)
	if err != nil {
		return false, err
	}
	return item.Status == "CONNECTED" || item.Status == "SYNCING", nil
}

// ListAccounts returns the item's accounts with balances converted from
// cents.
func (a *Adapter) ListAccounts(ctx context.Context, externalID string) ([]provider.ExternalAccount, error) {
	if !a.cfg.Enabled {
		return nil, a.disabled()
	}
	itemID, _ := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body struct {
		Resources []struct {
			ID           json.Number     `json:"id"`
			Name         string          `json:"name"`
			Type         string          `json:"type"`
			Balance      decimal.Decimal `json:"balance"`
			CurrencyCode string          `json:"currency_code"`
			IBAN         string          `json:"iban"`
		} `json:"resources"`
	}
	if err := a.client.DoJSON(ctx, http.MethodGet, "/items/"+itemID+"/accounts", token, nil, &body); err != nil {
		return nil, err
	}

	accounts := make([]provider.ExternalAccount, 0, len(body.Resources))
	for _, acc := range body.Resources {
		currency := acc.CurrencyCode
		if currency == "" {
			currency = "EUR"
		}
		accounts = append(accounts, provider.ExternalAccount{
			ExternalID: acc.ID.String(),
			Name:       acc.Name,
			Type:       mapAccountType(acc.Type),
			Balance:    acc.Balance.Div(hundred),
			Currency:   currency,
			IBAN:       acc.IBAN,
		})
	}
	return accounts, nil
}

// ListTransactions returns one account's transactions over the lookback
// window, amounts converted from cents.
func (a *Adapter) ListTransactions(ctx context.Context, externalID, accountID string, lookbackDays int) ([]provider.ExternalTransaction, error) {
	if !a.cfg.Enabled {
		return nil, a.disabled()
	}

	token, err := a.client.Token(ctx)
	if err != nil {
		return nil, err
	}

	until := time.Now().UTC()
	since := until.AddDate(0, 0, -lookbackDays)
	path := fmt.Sprintf("/accounts/%s/transactions?since=%s&until=%s&limit=500",
		accountID, since.Format("2006-01-02"), until.Format("2006-01-02"))

	var body struct {
		Resources []struct {
			ID          json.Number     `json:"id"`
			Amount      decimal.Decimal `json:"amount"`
			Description string          `json:"description"`
			Date        string          `json:"date"`
		} `json:"resources"`
	}
	if err := a.client.DoJSON(ctx, http.MethodGet, path, token, nil, &body); err != nil {
		return nil, err
	}

	txns := make([]provider.ExternalTransaction, 0, len(body.Resources))
	for _, tx := range body.Resources {
		date, err := time.Parse("2006-01-02", tx.Date)
		if err != nil {
			a.logger.Warn("skipping transaction with unparseable date",
				"transaction_id", tx.ID.String(), "date", tx.Date)
			continue
		}
		valueDate := date
		txns = append(txns, provider.ExternalTransaction{
			ExternalID:      tx.ID.String(),
			Amount:          tx.Amount.Div(hundred),
			Currency:        "EUR",
			Description:     tx.Description,
			TransactionDate: date,
			ValueDate:       &valueDate,
		})
	}
	return txns, nil
}

// CheckHealth reports whether Bridge still considers the item usable.
func (a *Adapter) CheckHealth(ctx context.Context, externalID string) bool {
	if !a.cfg.Enabled {
		return false
	}
	itemID, _ := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return false
	}

	var item struct {
		Status string `json:"status"`
	}
	if err := a.client.DoJSON(ctx, http.MethodGet, "/items/"+itemID, token, nil, &item); err != nil {
		a.logger.Warn("health check failed", "error", err)
		return false
	}
	return item.Status == "CONNECTED" || item.Status == "SYNCING"
}

// Revoke deletes the item at Bridge.
func (a *Adapter) Revoke(ctx context.Context, externalID string) (bool, error) {
	if !a.cfg.Enabled {
		return false, a.disabled()
	}
	itemID, _ := splitExternalID(externalID)

	token, err := a.client.Token(ctx)
	if err != nil {
		return false, err
	}

	status, err := a.client.DoStatus(ctx, http.MethodDelete, "/items/"+itemID, token, nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK || status == http.StatusNoContent, nil
}

func mapAccountType(bridgeType string) string {
	switch bridgeType {
	case "checking":
		return "CHECKING"
	case "savings":
		return "SAVINGS"
	case "card":
		return "CARD"
	case "loan":
		return "LOAN"
	case "brokerage", "life_insurance":
		return "INVESTMENT"
	default:
		return strings.ToUpper(bridgeType)
	}
}

// splitExternalID decomposes "bridge_<itemID>_<userID>".
func splitExternalID(externalID string) (itemID, userID string) {
	raw := strings.TrimPrefix(externalID, idPrefix)
	itemID, userID, ok := strings.Cut(raw, "_")
	if !ok {
		return raw, ""
	}
	return itemID, userID
}
