// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/platform/database"
	platformElasticsearch "fitcoach_backend/internal/platform/elasticsearch"
	"fitcoach_backend/internal/platform/logger"
	"fitcoach_backend/internal/workout"

	"go.uber.org/zap"
)

func main() {
	reindexCmd := flag.NewFlagSet("reindex-workouts", flag.ExitOnError)
	batchSize := reindexCmd.Int("batch-size", 100, "Batch size for indexing workouts")
	esRefresh := reindexCmd.String("es-refresh", "false", "Elasticsearch refresh policy (true, false, wait_for)")

	if len(os.Args) > 1 && os.Args[1] == "reindex-workouts" {
		if err := reindexCmd.Parse(os.Args[2:]); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		runReindex(*batchSize, *esRefresh)
		return
	}

	startServer()
}

func runReindex(batchSize int, refresh string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for reindex: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for reindex: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for reindex", zap.Error(err))
	}
	defer database.CloseGORMDB(db)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for reindex", zap.Error(err))
	}
	ctx := context.Background()
	if err := platformElasticsearch.CreateIndexIfNotExists(ctx, esClient, workout.IndexName, workout.Mapping(), appLogger); err != nil {
		appLogger.Fatal("Failed to create/verify workouts index", zap.Error(err))
	}

	res, err := workout.Reindex(ctx, workout.NewGORMRepository(db), esClient, batchSize, refresh, appLogger)
	if err != nil {
		appLogger.Error("Workout reindex finished with failures", zap.Error(err), zap.Int("synced", res.Synced), zap.Int("failed", res.Failed))
		os.Exit(1)
	}
	appLogger.Info("Workout reindex completed successfully.", zap.Int("synced", res.Synced), zap.Int("batches", res.Batches))
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}
