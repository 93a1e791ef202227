package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"climatrend/internal/config"
	"climatrend/internal/container"
	"climatrend/internal/errors"
	"climatrend/internal/migration"
)

// initDatabase connects to the snapshot archive and bootstraps its schema
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Archive.URL == "" {
		return nil, errors.ConfigInvalid("ARCHIVE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Archive.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to archive database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping archive database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "archive migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	// The snapshot archive is optional; without it loads simply skip archiving
	if appConfig.Archive.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize archive database: %v", err)
		}
		if err := appContainer.InitWithDatabase(db); err != nil {
			log.Fatalf("Failed to initialize container: %v", err)
		}
	}

	if err := appContainer.InitServices(); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := appContainer.LoadInitial(ctx); err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	if appConfig.Charts.Enabled {
		go func() {
			if err := appContainer.Charts.Start(); err != nil {
				log.Printf("Chart server stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:    ":" + appConfig.Server.Port,
		Handler: appContainer.API.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting climatrend server on port %s", appConfig.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Server failed:", err)
	}
}
