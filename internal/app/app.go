package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"metricore/internal/config"
	httpTransport "metricore/internal/transport/http"
	"metricore/pkg/logging"
)

// App represents the main application
type App struct {
	config       *config.Config
	logger       *slog.Logger
	providers    *ProviderContainer
	httpServer   *httpTransport.Server
	shutdownOnce sync.Once
}

func NewServer(cfg *config.Config) (*App, error) {
	logger := logging.NewLoggerWithFormat(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	)

	core, err := ProvideCore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize core: %w", err)
	}

	server, err := ProvideServer(context.Background(), core)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return &App{
		config:     cfg,
		logger:     logger,
		httpServer: server.HTTPServer,
		providers: &ProviderContainer{
			Core:   core,
			Server: server,
		},
	}, nil
}

func (a *App) Start() error {
	a.logger.Info("starting metricore server")

	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("HTTP server failed unexpectedly", "error", err)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = a.Shutdown(ctx)
			os.Exit(1)
		}
	}()

	a.logger.Info("metricore server started successfully")
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	a.shutdownOnce.Do(func() {
		shutdownErr = a.doShutdown(ctx)
	})

	return shutdownErr
}

func (a *App) doShutdown(ctx context.Context) error {
	a.logger.Info("shutting down metricore server")

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if a.httpServer != nil {
			if err := a.httpServer.Shutdown(ctx); err != nil {
				a.logger.Error("failed to shutdown HTTP server", "error", err)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if a.providers != nil {
			if err := a.providers.Shutdown(); err != nil {
				a.logger.Error("failed to shutdown providers", "error", err)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("metricore server shutdown completed")
		return nil
	case <-ctx.Done():
		a.logger.Warn("shutdown timeout exceeded, forcing shutdown")
		return ctx.Err()
	}
}

// GetProviders returns the provider container for access to all services and dependencies
func (a *App) GetProviders() *ProviderContainer {
	return a.providers
}

// Health returns the health status of all components using providers
func (a *App) Health() map[string]string {
	if a.providers != nil {
		return a.providers.HealthCheck()
	}

	return map[string]string{
		"status": "providers not initialized",
	}
}

// GetLogger returns the application logger
func (a *App) GetLogger() *slog.Logger {
	return a.logger
}

// GetConfig returns the application configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetDatabases returns the database connections
func (a *App) GetDatabases() *DatabaseContainer {
	if a.providers == nil || a.providers.Core == nil {
		return nil
	}
	return a.providers.Core.Databases
}
