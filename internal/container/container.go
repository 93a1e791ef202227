package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"climatrend/adapters/excel"
	"climatrend/adapters/gistemp"
	"climatrend/adapters/postgres"
	"climatrend/app"
	"climatrend/domain/climate"
	"climatrend/internal"
	"climatrend/internal/config"
	"climatrend/internal/metrics"
	"climatrend/ports"
	"climatrend/ui"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Observability
	Collector *metrics.Collector

	// Adapters
	Loader  ports.DatasetLoader
	Archive ports.SnapshotArchive // nil when the archive is disabled

	// Services
	Analysis *app.AnalysisService
	Exporter ports.ReportExporter

	// Delivery
	API    *ui.App
	Charts *ui.ChartServer

	logger *internal.Logger
}

// New creates a new dependency injection container. Database-backed
// components stay unset until InitWithDatabase; InitServices wires the rest.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Data.File == "" {
		return nil, fmt.Errorf("no dataset file configured")
	}

	c := &Container{
		Config:    cfg,
		Collector: metrics.NewCollector("climatrend"),
		Loader:    gistemp.NewLoader(cfg.Data.File),
		logger:    internal.DefaultLogger.WithTag("Container"),
	}

	return c, nil
}

// InitWithDatabase wires the snapshot archive over an established connection
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.DB = db
	c.Archive = postgres.NewSnapshotRepository(db)
	c.logger.Info("snapshot archive enabled")
	return nil
}

// InitServices builds the analysis service and delivery surfaces. Call after
// InitWithDatabase when the archive is enabled; the archive stays nil
// otherwise and loads simply skip archiving.
func (c *Container) InitServices() error {
	c.Analysis = app.NewAnalysisService(c.Loader, c.Archive, c.Collector, c.Config.Analysis.RollingWindow)
	c.Exporter = excel.NewExporter(c.Analysis, c.Collector)
	c.API = ui.NewApp(ui.Config{Port: c.Config.Server.Port}, c.Analysis, c.Collector)
	c.Charts = ui.NewChartServer(c.Config.Charts.Dir, c.Config.Charts.PortBase).
		WithPortAttempts(c.Config.Charts.PortAttempts)
	return nil
}

// LoadInitial runs the pipeline for the configured section so the server
// starts with a live table
func (c *Container) LoadInitial(ctx context.Context) error {
	section, err := climate.ParseSection(c.Config.Data.Section)
	if err != nil {
		return err
	}
	if _, err := c.Analysis.Load(ctx, section); err != nil {
		return fmt.Errorf("initial load of %s failed: %w", section, err)
	}
	return nil
}

// Shutdown releases container resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	c.logger.Info("container shut down")
	return nil
}
