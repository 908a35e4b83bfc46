// Package app assembles the aggregation engine from its parts: the
// adapter registry and resilience policies feed the router, the router
// feeds the reconciler, and the reconciler backs the connection service,
// the scheduler and the webhook gateway.
package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/mosaiq/bankfeed/pkg/aggregation"
	"github.com/mosaiq/bankfeed/pkg/categorizer"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/registry"
	"github.com/mosaiq/bankfeed/pkg/repository"
	"github.com/mosaiq/bankfeed/pkg/resilience"
	"github.com/mosaiq/bankfeed/pkg/scheduler"
	"github.com/mosaiq/bankfeed/pkg/service/connection"
	"github.com/mosaiq/bankfeed/pkg/sync"
	"github.com/mosaiq/bankfeed/pkg/webhook"
)

// Deps contains the infrastructure dependencies the engine is built on.
type Deps struct {
	Uow      repository.UnitOfWork
	DB       *gorm.DB
	Adapters *registry.Registry
	Policies *resilience.Registry
	Logger   *slog.Logger
}

// App is the fully wired aggregation engine.
type App struct {
	Deps   *Deps
	Config *config.App

	Router            *aggregation.Router
	Reconciler        *sync.Reconciler
	Scheduler         *scheduler.Scheduler
	WebhookGateway    *webhook.Gateway
	ConnectionService *connection.Service
}

// New wires the engine. The scheduler is created but not started; callers
// decide when background sync begins.
func New(deps *Deps, cfg *config.App) *App {
	a := &App{
		Deps:   deps,
		Config: cfg,
	}

	a.Router = aggregation.NewRouter(
		deps.Adapters,
		deps.Policies,
		cfg.Banking.DefaultProvider,
		deps.Logger,
	)
	a.Reconciler = sync.NewReconciler(
		a.Router,
		deps.Uow,
		categorizer.Default(),
		cfg.Banking.Sync.LookbackDays,
		deps.Logger,
	)
	a.Scheduler = scheduler.New(deps.Uow, a.Reconciler, *cfg.Banking.Sync, deps.Logger)
	a.WebhookGateway = webhook.NewGateway(
		webhookEndpoints(cfg.Banking, deps.Adapters),
		deps.Uow,
		a.Reconciler,
		a.Scheduler.Pool(),
		deps.Logger,
	)
	a.ConnectionService = connection.New(deps.Uow, a.Router, a.Reconciler, deps.Logger)

	return a
}

// webhookEndpoints builds the per-provider webhook configuration. A
// provider without a webhook secret gets no endpoint: unauthenticated
// webhooks are never accepted.
func webhookEndpoints(cfg *config.Banking, adapters *registry.Registry) map[string]webhook.Endpoint {
	endpoints := map[string]webhook.Endpoint{}
	add := func(code string, bp *config.BankProvider) {
		if bp == nil || bp.WebhookSecret == "" {
			return
		}
		adapter, ok := adapters.Get(code)
		if !ok {
			return
		}
		endpoints[code] = webhook.Endpoint{
			Secret:   bp.WebhookSecret,
			IDPrefix: adapter.IDPrefix(),
		}
	}
	add("budget-insight", cfg.BudgetInsight)
	add("bridge", cfg.Bridge)
	add("mock", cfg.Mock)
	return endpoints
}
