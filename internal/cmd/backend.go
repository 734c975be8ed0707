package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marmotdata/icemeta/internal/catalog"
	"github.com/marmotdata/icemeta/internal/config"
	"github.com/marmotdata/icemeta/internal/metrics"
	"github.com/marmotdata/icemeta/internal/storage"
	"github.com/marmotdata/icemeta/internal/storage/memblob"
	"github.com/marmotdata/icemeta/internal/storage/rediscache"
	"github.com/marmotdata/icemeta/internal/storage/s3blob"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// openCatalog loads config, builds the configured storage backend (with an
// optional Redis read-through cache in front of it), and opens a Catalog
// over it. Every subcommand shares this so --config/--storage behave
// identically no matter which operation is invoked.
func openCatalog(ctx context.Context) (*catalog.Catalog, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	blob, err := buildBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		rec = metrics.NewCollector()
	}

	cat, err := catalog.Open(ctx, catalog.Options{
		Blob:    blob,
		Metrics: rec,
		Retry: catalog.RetryPolicy{
			MaxRetries:          cfg.Catalog.CommitMaxRetries,
			BaseInterval:        time.Duration(cfg.Catalog.CommitBaseIntervalMs) * time.Millisecond,
			MaxInterval:         time.Duration(cfg.Catalog.CommitMaxIntervalMs) * time.Millisecond,
			RandomizationFactor: cfg.Catalog.CommitJitter,
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening catalog: %w", err)
	}
	return cat, cfg, nil
}

func buildBackend(ctx context.Context, cfg *config.Config) (storage.Blob, error) {
	var blob storage.Blob
	switch cfg.Storage.Backend {
	case "memory":
		blob = memblob.New()
	case "s3":
		store, err := s3blob.New(ctx, s3blob.Options{
			Region:       cfg.Storage.S3.Region,
			Bucket:       cfg.Storage.S3.Bucket,
			Prefix:       cfg.Storage.S3.Prefix,
			BaseEndpoint: cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("constructing s3 backend: %w", err)
		}
		blob = store
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Cache.Enabled {
		blob = rediscache.New(blob, rediscache.Options{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			TTL:       time.Duration(cfg.Cache.Redis.TTLSeconds) * time.Second,
			KeyPrefix: "icemeta:",
		})
	}
	return blob, nil
}
