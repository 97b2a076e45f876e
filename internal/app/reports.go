package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/jegsons/sellthru/internal/jobs"
	"github.com/jegsons/sellthru/internal/platform/storage"
	"github.com/jegsons/sellthru/internal/sellthru"
	"github.com/jegsons/sellthru/internal/sellthru/export"
	"github.com/jegsons/sellthru/internal/shared"
)

// ReportDeps carries the shared clients every binary opens for reporting.
type ReportDeps struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Store   storage.Store
	Metrics *jobmetrics.Metrics
	Logger  *slog.Logger
}

// NewRenderer returns the workbook renderer used for archived and downloaded reports.
func NewRenderer() sellthru.Renderer {
	return export.NewWorkbook()
}

// NewReportService wires the ERP repository, builder, workbook renderer and
// archive into a report service. Without redis runs are not serialised.
func NewReportService(cfg *Config, deps ReportDeps) *sellthru.Service {
	repo := sellthru.NewRepository(deps.Pool, cfg.NAVCompany)
	svcCfg := sellthru.ServiceConfig{
		Builder:    sellthru.NewBuilder(repo),
		Renderer:   NewRenderer(),
		Store:      deps.Store,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
		FilePrefix: cfg.ReportFilePrefix,
	}
	if deps.Redis != nil {
		svcCfg.Locker = shared.NewLocker(deps.Redis, cfg.ReportLockTTL)
	}
	return sellthru.NewService(svcCfg)
}
