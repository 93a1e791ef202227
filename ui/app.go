package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"climatrend/app"
	"climatrend/internal"
	"climatrend/internal/metrics"
	"climatrend/ports"
)

// Config holds API application configuration
type Config struct {
	Port string
}

// App is the JSON API application. Read endpoints go through the analysis
// reader port; only the dataset switch touches the service directly.
type App struct {
	router    *chi.Mux
	service   *app.AnalysisService
	reader    ports.AnalysisReader
	collector *metrics.Collector
	logger    *internal.Logger
	port      string
}

// NewApp creates a new API application
func NewApp(config Config, service *app.AnalysisService, collector *metrics.Collector) *App {
	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		reader:    service,
		collector: collector,
		logger:    internal.DefaultLogger.WithTag("API"),
		port:      config.Port,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	// Dataset endpoints
	a.router.Get("/api/table", a.handleTable)
	a.router.Get("/api/snapshot", a.handleSnapshot)
	a.router.Get("/api/sections", a.handleSections)
	a.router.Post("/api/dataset", a.handleSwitchDataset)

	// Statistics endpoints
	a.router.Get("/api/summary", a.handleSummary)
	a.router.Get("/api/trend", a.handleTrend)

	// Derived series endpoints
	a.router.Get("/api/decadal", a.handleDecadal)
	a.router.Get("/api/rolling", a.handleRolling)
	a.router.Get("/api/yoy", a.handleYearOverYear)
	a.router.Get("/api/monthly", a.handleMonthly)
	a.router.Get("/api/profile", a.handleProfile)

	// Operational endpoints
	a.router.Get("/health", a.handleHealth)
	a.router.Handle("/metrics", promhttp.Handler())
}

// Router exposes the configured handler for embedding and tests
func (a *App) Router() http.Handler {
	return a.router
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := ":" + a.port
	a.logger.Info("starting API server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}
