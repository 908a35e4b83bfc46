// Package initializer builds the infrastructure side of the dependency
// graph: database, unit of work, provider adapters and their resilience
// policies.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/mosaiq/bankfeed/infra/database"
	"github.com/mosaiq/bankfeed/infra/provider/bridge"
	"github.com/mosaiq/bankfeed/infra/provider/budgetinsight"
	"github.com/mosaiq/bankfeed/infra/provider/mockbank"
	infra_repository "github.com/mosaiq/bankfeed/infra/repository"
	"github.com/mosaiq/bankfeed/pkg/app"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/pkg/registry"
	"github.com/mosaiq/bankfeed/pkg/resilience"
)

// InitializeDependencies initializes all the application dependencies.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	deps := &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	db, err := database.New(*cfg.DB, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	deps.DB = db
	deps.Uow = infra_repository.NewUoW(db)

	deps.Adapters = registry.New()
	deps.Policies = resilience.NewRegistry(
		resilience.FromConfig(resilience.DefaultSettings(), cfg.Banking.Default),
		logger,
	)
	registerProviders(cfg.Banking, deps, logger)

	return deps, nil
}

// registerProviders wires every configured bank adapter into the registry
// with its resilience preset. The sandbox adapter is always available so
// the engine can be exercised without external credentials.
func registerProviders(cfg *config.Banking, deps *app.Deps, logger *slog.Logger) {
	if bp := cfg.BudgetInsight; bp != nil {
		adapter := budgetinsight.New(*bp, logger)
		deps.Adapters.Register(adapter, registry.Meta{
			DisplayName: "Budget Insight (Powens)",
			Description: "European open-banking aggregation platform",
			Fields:      []string{"login", "password"},
			Enabled:     bp.Enabled,
		})
		deps.Policies.Configure(adapter.Name(),
			resilience.FromConfig(resilience.BudgetInsightSettings(), bp.Resilience))
	}

	if bp := cfg.Bridge; bp != nil {
		adapter := bridge.New(*bp, logger)
		deps.Adapters.Register(adapter, registry.Meta{
			DisplayName: "Bridge API (Bankin')",
			Description: "French banking aggregation API",
			Fields:      []string{"login", "password"},
			Enabled:     bp.Enabled,
		})
		deps.Policies.Configure(adapter.Name(),
			resilience.FromConfig(resilience.BridgeSettings(), bp.Resilience))
	}

	mock := mockbank.New(logger)
	meta := registry.Meta{
		DisplayName: "Mock Bank",
		Description: "Deterministic sandbox provider",
		Fields:      []string{"login", "password"},
		Enabled:     true,
		Sandbox:     true,
	}
	var mockResilience *config.Resilience
	if cfg.Mock != nil {
		meta.Enabled = cfg.Mock.Enabled
		mockResilience = cfg.Mock.Resilience
	}
	deps.Adapters.Register(mock, meta)
	deps.Policies.Configure(mock.Name(),
		resilience.FromConfig(resilience.MockSettings(), mockResilience))
}
