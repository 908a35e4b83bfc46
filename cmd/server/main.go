package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/charmbracelet/log"

	"github.com/mosaiq/bankfeed/infra/initializer"
	"github.com/mosaiq/bankfeed/pkg/app"
	"github.com/mosaiq/bankfeed/pkg/config"
	"github.com/mosaiq/bankfeed/webapi"
)

// @title Bankfeed API
// @version 1.0.0
// @description Bank aggregation and synchronization engine
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "Enter your Bearer token in the format: `Bearer {token}`"
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	a := app.New(deps, cfg)
	a.Scheduler.Start()

	fiberApp := webapi.NewApp(cfg, a.ConnectionService, a.WebhookGateway)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fiberApp.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	if err := fiberApp.Shutdown(); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Scheduler.Stop(ctx); err != nil {
		logger.Error("scheduler drain incomplete", "error", err)
	}

	slog.Info("bye 👋")
	return nil
}
