// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arc_community_backend/internal/catalog"
	"arc_community_backend/internal/catalog/esutil"
	"arc_community_backend/internal/config"
	"arc_community_backend/internal/platform/database"
	platformElasticsearch "arc_community_backend/internal/platform/elasticsearch"
	"arc_community_backend/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	syncCatalogCmd := flag.NewFlagSet("sync-catalog", flag.ExitOnError)
	batchSize := syncCatalogCmd.Int("batch-size", 100, "Batch size for syncing catalog entries")
	esRefresh := syncCatalogCmd.String("es-refresh", "false", "Elasticsearch refresh policy (true, false, wait_for)")

	if len(os.Args) > 1 && os.Args[1] == "sync-catalog" {
		_ = syncCatalogCmd.Parse(os.Args[2:])
		runCatalogSync(*batchSize, *esRefresh)
		return
	}

	startServer()
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		log.Printf("ERROR: Server stopped with error: %v", err)
		return
	}
	log.Println("INFO: Application exiting.")
}

// runCatalogSync reindexes the whole catalog into Elasticsearch.
func runCatalogSync(batchSize int, esRefresh string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger for sync: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database for sync", zap.Error(err))
	}
	defer database.CloseGORMDB(db)

	esClient, err := platformElasticsearch.NewClient(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Elasticsearch client for sync", zap.Error(err))
	}
	if esClient == nil {
		appLogger.Fatal("ELASTICSEARCH_URL is not set, nothing to sync to.")
	}

	repo := catalog.NewGORMRepository(db)
	if err := esutil.SyncCatalog(context.Background(), repo, esClient, appLogger, batchSize, esRefresh); err != nil {
		appLogger.Fatal("Catalog synchronization failed", zap.Error(err))
	}
	appLogger.Info("Catalog synchronization completed successfully.")
}
