package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mosaiq/bankfeed/pkg/domain"
	"github.com/mosaiq/bankfeed/pkg/repository"
)

// Event types the gateway understands. Anything else is logged and
// acknowledged as a no-op so new provider event types never bounce.
const (
	EventConnectionSynced   = "connection.synced"
	EventConnectionError    = "connection.error"
	EventConnectionExpired  = "connection.expired"
	EventAccountUpdated     = "account.updated"
	EventTransactionCreated = "transaction.created"
)

// Event is the decoded inbound payload. Providers reference connections by
// their external id, sometimes without the routing prefix.
type Event struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	AccountID    string `json:"account_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Endpoint is the per-provider webhook configuration.
type Endpoint struct {
	Secret   string
	IDPrefix string
}

// Syncer reconciles one connection. Satisfied by *sync.Reconciler.
type Syncer interface {
	Reconcile(ctx context.Context, conn *domain.Connection) domain.SyncResult
}

// Submitter schedules dispatch off the request thread. Satisfied by
// *scheduler.Pool.
type Submitter interface {
	Submit(task func()) error
}

// Gateway authenticates inbound provider events and dispatches them.
type Gateway struct {
	endpoints map[string]Endpoint
	uow       repository.UnitOfWork
	syncer    Syncer
	pool      Submitter
	logger    *slog.Logger
}

// NewGateway builds a Gateway. endpoints is keyed by provider code.
func NewGateway(
	endpoints map[string]Endpoint,
	uow repository.UnitOfWork,
	syncer Syncer,
	pool Submitter,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		endpoints: endpoints,
		uow:       uow,
		syncer:    syncer,
		pool:      pool,
		logger:    logger.With("component", "webhook_gateway"),
	}
}

// Handle verifies the raw body's signature for the named provider, decodes
// the event and hands dispatch to the worker pool. The caller's request
// thread never waits on provider calls. ErrWebhookVerification is returned
// on any authentication failure with no state mutated; a pool rejection is
// surfaced so the caller can signal overload.
func (g *Gateway) Handle(_ context.Context, providerCode string, body []byte, signature string) error {
	endpoint, ok := g.endpoints[providerCode]
	if !ok {
		g.logger.Warn("webhook for unknown provider", "provider", providerCode)
		return domain.ErrUnsupportedProvider
	}
	if !Verify(body, signature, endpoint.Secret) {
		g.logger.Warn("webhook signature rejected", "provider", providerCode)
		return domain.ErrWebhookVerification
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		g.logger.Warn("webhook body undecodable", "provider", providerCode, "error", err)
		return fmt.Errorf("decode webhook body: %w", err)
	}
	event.ConnectionID = withPrefix(event.ConnectionID, endpoint.IDPrefix)

	err := g.pool.Submit(func() {
		g.Dispatch(context.Background(), providerCode, event)
	})
	if err != nil {
		g.logger.Error("webhook dispatch rejected", "provider", providerCode, "error", err)
		return err
	}
	return nil
}

// Dispatch routes one authenticated event. Sync-triggering events
// reconcile the referenced connection; error and expiry events flip its
// status. Unknown event types are a no-op success.
func (g *Gateway) Dispatch(ctx context.Context, providerCode string, event Event) bool {
	log := g.logger.With("provider", providerCode, "event", event.Type, "connection", event.ConnectionID)

	switch event.Type {
	case EventConnectionSynced, EventAccountUpdated, EventTransactionCreated:
		return g.triggerSync(ctx, log, event)
	case EventConnectionError:
		return g.flipStatus(ctx, log, event.ConnectionID, domain.ConnectionError)
	case EventConnectionExpired:
		return g.flipStatus(ctx, log, event.ConnectionID, domain.ConnectionExpired)
	default:
		log.Warn("unhandled webhook event type, ignoring")
		return true
	}
}

func (g *Gateway) triggerSync(ctx context.Context, log *slog.Logger, event Event) bool {
	conn, err := g.findConnection(ctx, event.ConnectionID)
	if err != nil {
		log.Warn("webhook references unknown connection", "error", err)
		return false
	}
	result := g.syncer.Reconcile(ctx, conn)
	if !result.Success {
		log.Error("webhook-triggered sync failed", "message", result.Message)
		return false
	}
	log.Info("webhook-triggered sync completed",
		"new_accounts", result.NewAccounts, "new_transactions", result.NewTransactions)
	return true
}

func (g *Gateway) flipStatus(ctx context.Context, log *slog.Logger, externalID string, status domain.ConnectionStatus) bool {
	err := g.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conn, err := repo.GetByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		conn.Status = status
		return repo.Update(ctx, conn)
	})
	if err != nil {
		log.Warn("could not update connection status", "status", status, "error", err)
		return false
	}
	log.Info("connection status updated", "status", status)
	return true
}

func (g *Gateway) findConnection(ctx context.Context, externalID string) (*domain.Connection, error) {
	var conn *domain.Connection
	err := g.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.ConnectionRepository()
		if err != nil {
			return err
		}
		conn, err = repo.GetByExternalID(ctx, externalID)
		return err
	})
	return conn, err
}

func withPrefix(id, prefix string) string {
	if id == "" || prefix == "" || strings.HasPrefix(id, prefix) {
		return id
	}
	return prefix + id
}
