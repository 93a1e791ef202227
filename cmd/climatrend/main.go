package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"climatrend/adapters/excel"
	"climatrend/adapters/gistemp"
	"climatrend/adapters/postgres"
	"climatrend/app"
	"climatrend/domain/climate"
	"climatrend/domain/core"
	"climatrend/internal/config"
	"climatrend/internal/container"
	"climatrend/internal/metrics"
	"climatrend/internal/migration"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	rootCmd := &cobra.Command{
		Use:   "climatrend",
		Short: "Climate anomaly time-series analysis",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newExportCmd(),
		newServeCmd(),
		newMigrateCmd(),
		newSnapshotsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var dataset string
	var window int

	cmd := &cobra.Command{
		Use:   "analyze [data-file]",
		Short: "Run the load-clean-analyze pipeline and print the summary",
		Long: `Load one section of a multi-section anomaly file, clean it and print
the statistics summary with decadal aggregates.

Example: climatrend analyze GLB.Ts+dSST.csv --dataset "GHCNv4/ERSSTv5"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), args[0], dataset, window)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", climate.DefaultSection.String(), "Dataset section label")
	cmd.Flags().IntVar(&window, "window", 10, "Rolling mean window in years")

	return cmd
}

func newExportCmd() *cobra.Command {
	var dataset string
	var out string
	var csvPath string
	var window int

	cmd := &cobra.Command{
		Use:   "export [data-file]",
		Short: "Run the pipeline and write the analysis workbook",
		Long: `Load and analyze one dataset section, then write the multi-sheet
workbook (observations, decadal aggregates, rolling series, summary,
monthly profile). Optionally also write the cleaned table as csv.

Example: climatrend export GLB.Ts+dSST.csv --out report.xlsx --csv table.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), args[0], dataset, out, csvPath, window)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", climate.DefaultSection.String(), "Dataset section label")
	cmd.Flags().StringVar(&out, "out", "report.xlsx", "Workbook output path")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Optional csv output path for the cleaned table")
	cmd.Flags().IntVar(&window, "window", 10, "Rolling mean window in years")

	return cmd
}

func newServeCmd() *cobra.Command {
	var dataset string
	var chartsDir string
	var port string

	cmd := &cobra.Command{
		Use:   "serve [data-file]",
		Short: "Start the JSON API server and the chart file server",
		Long: `Load the configured dataset section and serve the analysis API.
Pre-rendered chart files are served from the charts directory on the
first free port at or above the configured base.

Example: climatrend serve GLB.Ts+dSST.csv --dataset "AIRS v6" --charts-dir outputs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), args[0], dataset, chartsDir, port)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset section label (default from DATASET env)")
	cmd.Flags().StringVar(&chartsDir, "charts-dir", "", "Chart file directory (default from CHARTS_DIR env)")
	cmd.Flags().StringVar(&port, "port", "", "API port (default from PORT env)")

	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [database-url]",
		Short: "Bootstrap the snapshot archive schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), args[0])
		},
	}

	return cmd
}

func newSnapshotsCmd() *cobra.Command {
	var section string
	var id string
	var limit int

	cmd := &cobra.Command{
		Use:   "snapshots [database-url]",
		Short: "Inspect archived load snapshots",
		Long: `List the archived load audit trail, newest first. With --section only
the latest snapshot of that section is shown, with --id a single one.

Example: climatrend snapshots postgres://localhost/climatrend --section "AIRS v7"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(cmd.Context(), args[0], section, id, limit)
		},
	}

	cmd.Flags().StringVar(&section, "section", "", "Show only the latest snapshot of this section")
	cmd.Flags().StringVar(&id, "id", "", "Show the snapshot with this ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum snapshots to list")

	return cmd
}

// newPipeline builds a standalone analysis service over one source file.
// CLI runs use a private metrics registry so repeated invocations in tests
// never collide.
func newPipeline(file string, window int) *app.AnalysisService {
	collector := metrics.NewCollectorWith("climatrend", prometheus.NewRegistry())
	loader := gistemp.NewLoader(file)
	return app.NewAnalysisService(loader, nil, collector, window)
}

func runAnalyze(ctx context.Context, file, dataset string, window int) error {
	section, err := climate.ParseSection(dataset)
	if err != nil {
		return err
	}

	service := newPipeline(file, window)

	startTime := time.Now()
	snapshot, err := service.Load(ctx, section)
	if err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	summary, err := service.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summary computation failed: %w", err)
	}
	products, err := service.Products(ctx, 0)
	if err != nil {
		return fmt.Errorf("aggregate computation failed: %w", err)
	}

	fmt.Printf("\n=== CLIMATE ANOMALY SUMMARY ===\n")
	fmt.Printf("Section: %s\n", summary.Section)
	fmt.Printf("Years: %d-%d (%d records)\n", summary.FirstYear, summary.LastYear, summary.Records)
	fmt.Printf("Source Hash: %s\n", snapshot.SourceHash)
	fmt.Printf("Mean Anomaly: %s °C\n", fmtFloat(summary.Mean))
	fmt.Printf("Std Dev: %s °C\n", fmtFloat(summary.Std))
	fmt.Printf("Trend: %s °C/year\n", fmtFloat(summary.TrendSlope))
	fmt.Printf("Quadratic Term: %s\n", fmtFloat(summary.Quadratic))
	fmt.Printf("Acceleration: %s °C/year\n", fmtFloat(summary.Acceleration))
	fmt.Printf("Warmest Year: %d (%s °C)\n", summary.Warmest.Year, fmtFloat(summary.Warmest.Value))
	fmt.Printf("Coldest Year: %d (%s °C)\n", summary.Coldest.Year, fmtFloat(summary.Coldest.Value))

	fmt.Printf("\n=== SEASONAL TRENDS ===\n")
	for _, season := range summary.Seasonal {
		fmt.Printf("%s: %s °C/year\n", season.Season, fmtFloat(season.Slope))
	}

	fmt.Printf("\n=== DECADAL MEANS ===\n")
	for i, row := range products.Decadal {
		change := ""
		if i < len(products.Changes) && products.Changes[i].Delta.Defined() {
			change = fmt.Sprintf(" (change %+.3f)", products.Changes[i].Delta.Value())
		}
		fmt.Printf("%ds: %s °C, n=%d%s\n", row.Decade, fmtFloat(row.Mean), row.Count, change)
	}

	if len(summary.Failures) > 0 {
		fmt.Printf("\n=== SKIPPED COMPUTATIONS ===\n")
		for _, failure := range summary.Failures {
			fmt.Printf("• %s: %s\n", failure.Field, failure.Reason)
		}
	}

	fmt.Printf("\n✅ Analysis completed in %v\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func runExport(ctx context.Context, file, dataset, out, csvPath string, window int) error {
	section, err := climate.ParseSection(dataset)
	if err != nil {
		return err
	}

	service := newPipeline(file, window)
	if _, err := service.Load(ctx, section); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	collector := metrics.NewCollectorWith("climatrend", prometheus.NewRegistry())
	exporter := excel.NewExporter(service, collector)

	if err := exporter.ExportWorkbook(ctx, out); err != nil {
		return err
	}
	fmt.Printf("Workbook written to %s\n", out)

	if csvPath != "" {
		if err := exporter.ExportCSV(ctx, csvPath); err != nil {
			return err
		}
		fmt.Printf("CSV written to %s\n", csvPath)
	}

	return nil
}

func runServe(ctx context.Context, file, dataset, chartsDir, port string) error {
	appConfig, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override env configuration
	appConfig.Data.File = file
	if dataset != "" {
		appConfig.Data.Section = dataset
	}
	if chartsDir != "" {
		appConfig.Charts.Dir = chartsDir
	}
	if port != "" {
		appConfig.Server.Port = port
	}
	if _, err := climate.ParseSection(appConfig.Data.Section); err != nil {
		return err
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		return err
	}
	defer appContainer.Shutdown(context.Background())

	if appConfig.Archive.URL != "" {
		db, err := sqlx.Connect("postgres", appConfig.Archive.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to archive database: %w", err)
		}
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			return fmt.Errorf("archive migration failed: %w", err)
		}
		if err := appContainer.InitWithDatabase(db); err != nil {
			return err
		}
	}

	if err := appContainer.InitServices(); err != nil {
		return err
	}
	if err := appContainer.LoadInitial(ctx); err != nil {
		return err
	}

	if appConfig.Charts.Enabled {
		go func() {
			if err := appContainer.Charts.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "chart server stopped: %v\n", err)
			}
		}()
	}

	return appContainer.API.Start()
}

func runMigrate(ctx context.Context, databaseURL string) error {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Printf("✅ Archive schema ready (version %s)\n", migrator.Version())
	return nil
}

func runSnapshots(ctx context.Context, databaseURL, section, id string, limit int) error {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	archive := postgres.NewSnapshotRepository(db)

	if id != "" {
		snapshotID, err := core.ParseSnapshotID(id)
		if err != nil {
			return err
		}
		snapshot, err := archive.GetByID(ctx, snapshotID)
		if core.IsNotFoundError(err) {
			fmt.Printf("No snapshot with ID %s\n", id)
			return nil
		}
		if err != nil {
			return err
		}
		printSnapshot(*snapshot)
		return nil
	}

	if section != "" {
		parsed, err := climate.ParseSection(section)
		if err != nil {
			return err
		}
		snapshot, err := archive.LatestBySection(ctx, parsed)
		if core.IsNotFoundError(err) {
			fmt.Printf("No snapshots archived for section %q\n", parsed)
			return nil
		}
		if err != nil {
			return err
		}
		printSnapshot(*snapshot)
		return nil
	}

	snapshots, err := archive.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Println("Archive is empty")
		return nil
	}

	fmt.Printf("\n=== ARCHIVED SNAPSHOTS ===\n")
	for _, snapshot := range snapshots {
		printSnapshot(snapshot)
	}
	return nil
}

func printSnapshot(s climate.Snapshot) {
	fmt.Printf("%s  %-18s  %d rows  %d-%d  %s\n",
		s.LoadedAt.Format("2006-01-02 15:04:05"), s.Section, s.Rows,
		s.FirstYear, s.LastYear, s.ID)
}

// fmtFloat renders a nullable value for terminal output
func fmtFloat(f climate.Float) string {
	if !f.Defined() {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", f.Value())
}
