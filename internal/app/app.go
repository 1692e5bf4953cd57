// Package app wires the adapters and use cases shared by the API server and
// the metricsctl command.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"taiga-metrics-service/internal/config"
	metricspg "taiga-metrics-service/internal/metrics/adapters/postgres"
	"taiga-metrics-service/internal/metrics/adapters/snapshotstore"
	"taiga-metrics-service/internal/metrics/core/usecase"
	"taiga-metrics-service/internal/platform/database"
	"taiga-metrics-service/internal/platform/logger"
	"taiga-metrics-service/internal/platform/telemetry"
	configpg "taiga-metrics-service/internal/projectconfig/adapters/postgres"
	configusecase "taiga-metrics-service/internal/projectconfig/core/usecase"
)

const ServiceName = "taiga-metrics-service"

type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Recorder *telemetry.Recorder

	TaigaDB *sql.DB
	Store   *snapshotstore.Store

	Projects   *metricspg.ProjectRepository
	Sprints    *metricspg.SprintRepository
	Calculator *usecase.Calculator
	Snapshots  *usecase.SnapshotService
	Metrics    *usecase.GetMetricsUseCase
	Configs    *configusecase.ConfigUseCase
}

func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logger.New(w, cfg.LogLevel, ServiceName, cfg.LogEnv)
}

// New opens both databases and builds every use case. Close releases them.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	taigaDB, err := database.OpenTaiga(ctx, cfg.DatabaseDSN, cfg.Pool)
	if err != nil {
		return nil, err
	}

	store, err := snapshotstore.Open(ctx, cfg.SnapshotBackend, cfg.SnapshotDSN, cfg.Pool)
	if err != nil {
		_ = taigaDB.Close()
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	// The taiga user may lack DDL rights; config reads then fall back to
	// defaults and only writes fail.
	if err := database.EnsureSchema(ctx, taigaDB, database.Postgres, database.ConfigSchema); err != nil {
		log.WarnContext(ctx, "metrics config table not ensured", "error", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		Recorder: telemetry.NewRecorder(),
		TaigaDB:  taigaDB,
		Store:    store,
	}

	metricsDB := metricspg.NewSQLDB(taigaDB)
	reg := metricspg.DefaultRegistry(metricsDB)
	if err := reg.Validate(); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("metric registry: %w", err)
	}

	a.Projects = metricspg.NewProjectRepository(metricsDB)
	a.Sprints = metricspg.NewSprintRepository(metricsDB)
	a.Calculator = usecase.NewCalculator(reg, a.Sprints, metricspg.NewMemberRepository(metricsDB),
		usecase.WithLogger(log),
		usecase.WithRecorder(a.Recorder),
	)
	a.Snapshots = usecase.NewSnapshotService(a.Calculator, store, cfg.TTLMinutes,
		usecase.WithServiceLogger(log),
		usecase.WithServiceRecorder(a.Recorder),
	)
	a.Configs = configusecase.NewConfigUseCase(a.Projects,
		configpg.NewConfigRepository(configpg.NewSQLDB(taigaDB)))
	a.Metrics = usecase.NewGetMetricsUseCase(a.Projects, a.Configs, a.Snapshots, cfg.DefaultProvider)

	return a, nil
}

func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.TaigaDB.Close())
}
