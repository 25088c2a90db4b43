package app

import (
	"context"
	"fmt"
	"log/slog"

	"metricore/internal/config"
	"metricore/internal/infrastructure/cache"
	"metricore/internal/infrastructure/database"
	metricsRepo "metricore/internal/infrastructure/repository/metrics"
	widgetRepo "metricore/internal/infrastructure/repository/widget"
	"metricore/internal/transport/http"
	"metricore/internal/transport/http/handlers"
	"metricore/internal/transport/http/handlers/health"
	metricsHandler "metricore/internal/transport/http/handlers/metrics"
	widgetHandler "metricore/internal/transport/http/handlers/widget"

	metricsService "metricore/internal/core/services/metrics"
	widgetService "metricore/internal/core/services/widget"
)

// CoreContainer holds the ambient infrastructure shared across the
// metric-entry and widget-evaluation pipelines: config, logger, and the
// three database connections.
type CoreContainer struct {
	Config    *config.Config
	Logger    *slog.Logger
	Databases *DatabaseContainer
}

type ServerContainer struct {
	HTTPServer *http.Server
}

type ProviderContainer struct {
	Core   *CoreContainer
	Server *ServerContainer
}

type DatabaseContainer struct {
	Postgres   *database.PostgresDB
	Redis      *database.RedisDB
	ClickHouse *database.ClickHouseDB
}

func ProvideDatabases(cfg *config.Config, logger *slog.Logger) (*DatabaseContainer, error) {
	postgres, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	redis, err := database.NewRedisDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	clickhouse, err := database.NewClickHouseDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &DatabaseContainer{
		Postgres:   postgres,
		Redis:      redis,
		ClickHouse: clickhouse,
	}, nil
}

func ProvideCore(cfg *config.Config, logger *slog.Logger) (*CoreContainer, error) {
	databases, err := ProvideDatabases(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &CoreContainer{
		Config:    cfg,
		Logger:    logger,
		Databases: databases,
	}, nil
}

// ProvideMetricsHandlers wires the entry-submission and widget-evaluation
// HTTP handlers. Both are self-contained (constructed independently
// rather than threaded through handlers.Handlers) because the schema
// must be loaded once at boot to seed the existing-entries oracle
// before any pipeline run can resolve metric-reference placeholders.
func ProvideMetricsHandlers(ctx context.Context, databases *DatabaseContainer, cfg *config.Config, logger *slog.Logger) (*metricsHandler.EntryHandler, *widgetHandler.Handler, error) {
	schemaStore := metricsRepo.NewSchemaStore(databases.Postgres.DB)
	definitions, fields, err := schemaStore.LoadSchema(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load metric schema: %w", err)
	}

	oracle := metricsRepo.NewOracle(databases.Postgres.DB, definitions, fields)
	schemaLoader, err := metricsService.NewSchemaLoader(schemaStore, oracle, cfg.Metrics.SchemaContextCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("create schema loader: %w", err)
	}
	entryHandler := metricsHandler.NewEntryHandler(logger, schemaLoader)

	parseCache, err := widgetService.NewParseCache(cfg.Metrics.SchemaContextCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("create widget parse cache: %w", err)
	}
	widgetLoader := widgetRepo.NewLoader(databases.ClickHouse.Conn)
	resultCache := cache.NewWidgetResultCache(databases.Redis.Client, cfg.Metrics.WidgetCacheTTL)
	widgetSvc := widgetService.NewService(parseCache, widgetLoader, resultCache)
	widgetH := widgetHandler.NewHandler(logger, widgetSvc)

	return entryHandler, widgetH, nil
}

// ProvideServer wires the HTTP transport layer: the health/metrics
// ambient handlers plus the metric-entry and widget-evaluation
// handlers, behind CORS, request logging, recovery, and a bearer-token
// auth guard.
func ProvideServer(ctx context.Context, core *CoreContainer) (*ServerContainer, error) {
	metricsEntryHandler, widgetEvalHandler, err := ProvideMetricsHandlers(ctx, core.Databases, core.Config, core.Logger)
	if err != nil {
		return nil, fmt.Errorf("provide metrics handlers: %w", err)
	}

	healthHandler := health.NewHandler(core.Config, core.Logger)
	promHandler := metricsHandler.NewHandler(core.Config, core.Logger)
	httpHandlers := handlers.NewHandlers(healthHandler, promHandler)

	httpServer := http.NewServer(
		core.Config,
		core.Logger,
		httpHandlers,
		metricsEntryHandler,
		widgetEvalHandler,
	)

	return &ServerContainer{
		HTTPServer: httpServer,
	}, nil
}

func (pc *ProviderContainer) HealthCheck() map[string]string {
	health := make(map[string]string)

	if pc.Core != nil && pc.Core.Databases != nil {
		if pc.Core.Databases.Postgres != nil {
			if err := pc.Core.Databases.Postgres.Health(); err != nil {
				health["postgres"] = "unhealthy: " + err.Error()
			} else {
				health["postgres"] = "healthy"
			}
		}

		if pc.Core.Databases.Redis != nil {
			if err := pc.Core.Databases.Redis.Health(); err != nil {
				health["redis"] = "unhealthy: " + err.Error()
			} else {
				health["redis"] = "healthy"
			}
		}

		if pc.Core.Databases.ClickHouse != nil {
			if err := pc.Core.Databases.ClickHouse.Health(); err != nil {
				health["clickhouse"] = "unhealthy: " + err.Error()
			} else {
				health["clickhouse"] = "healthy"
			}
		}
	}

	return health
}

func (pc *ProviderContainer) Shutdown() error {
	var lastErr error
	logger := pc.Core.Logger

	if pc.Core != nil && pc.Core.Databases != nil {
		if pc.Core.Databases.Postgres != nil {
			if err := pc.Core.Databases.Postgres.Close(); err != nil {
				logger.Error("failed to close PostgreSQL connection", "error", err)
				lastErr = err
			}
		}

		if pc.Core.Databases.Redis != nil {
			if err := pc.Core.Databases.Redis.Close(); err != nil {
				logger.Error("failed to close Redis connection", "error", err)
				lastErr = err
			}
		}

		if pc.Core.Databases.ClickHouse != nil {
			if err := pc.Core.Databases.ClickHouse.Close(); err != nil {
				logger.Error("failed to close ClickHouse connection", "error", err)
				lastErr = err
			}
		}
	}

	return lastErr
}
