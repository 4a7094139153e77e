// Package main wires together the harvester service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcppubsub "cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/mwhitford/wp-harvester/internal/api"
	archivegcs "github.com/mwhitford/wp-harvester/internal/archive/gcs"
	archivemem "github.com/mwhitford/wp-harvester/internal/archive/memory"
	"github.com/mwhitford/wp-harvester/internal/classify"
	"github.com/mwhitford/wp-harvester/internal/clock/system"
	"github.com/mwhitford/wp-harvester/internal/config"
	"github.com/mwhitford/wp-harvester/internal/crawl"
	"github.com/mwhitford/wp-harvester/internal/extract"
	"github.com/mwhitford/wp-harvester/internal/fetch/collyfetch"
	"github.com/mwhitford/wp-harvester/internal/harvest"
	"github.com/mwhitford/wp-harvester/internal/ingest"
	"github.com/mwhitford/wp-harvester/internal/logging"
	pubmem "github.com/mwhitford/wp-harvester/internal/publisher/memory"
	pubgcp "github.com/mwhitford/wp-harvester/internal/publisher/pubsub"
	"github.com/mwhitford/wp-harvester/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Connect(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("schema setup failed", zap.Error(err))
	}

	linkStore := postgres.NewLinkStore(pool)
	contentStore := postgres.NewContentStore(pool)
	clock := system.New()

	fetcher := collyfetch.New(collyfetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		Delay:     cfg.Delay(),
	})

	blobs, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("archive setup failed", zap.Error(err))
	}
	publisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("publisher setup failed", zap.Error(err))
	}

	frontier, err := crawl.New(linkStore, fetcher, cfg.Site.Root, logger.Named("crawl"))
	if err != nil {
		logger.Fatal("frontier setup failed", zap.Error(err))
	}
	assigner := classify.NewAssigner(linkStore, logger.Named("classify"))
	taxonomy := classify.NewTaxonomy(linkStore, contentStore, logger.Named("classify"))

	ingester := ingest.New(
		fetcher,
		extract.New(clock),
		linkStore,
		contentStore,
		publisher,
		blobs,
		clock,
		cfg.PubSub.TopicName,
		ingest.ArchiveConfig{Prefix: cfg.Archive.Prefix, ContentType: cfg.Archive.ContentType},
		logger.Named("ingest"),
	)
	batch := ingest.NewBatchRunner(ingester, logger.Named("ingest"))
	single := ingest.NewSingleRunner(ingester, logger.Named("ingest"))

	apiServer := api.NewServer(frontier, assigner, taxonomy, batch, single, pool, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildArchive picks the page archive backend. Archiving is optional;
// when disabled no snapshots are written.
func buildArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (harvest.BlobStore, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	if cfg.Archive.Backend == "gcs" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return archivegcs.New(client, cfg.Archive.GCSBucket)
	}
	logger.Info("using in-memory page archive")
	return archivemem.New(), nil
}

// buildPublisher returns a Pub/Sub publisher when a project is
// configured, falling back to the in-memory recorder otherwise.
func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (harvest.Publisher, error) {
	if cfg.PubSub.ProjectID == "" {
		logger.Info("using in-memory publisher")
		return pubmem.New(), nil
	}
	client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	return pubgcp.New(client), nil
}
