// Package app turns a config.Config into the concrete backends shared by
// the commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/fblacp/scales/internal/config"
	"github.com/fblacp/scales/internal/gcs"
	"github.com/fblacp/scales/internal/gcsuploader"
	infraBQ "github.com/fblacp/scales/internal/infra/bigquery"
	"github.com/fblacp/scales/internal/infra/postgres"
	"github.com/fblacp/scales/internal/kv"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/receipt"
	"github.com/fblacp/scales/internal/store"
	"github.com/fblacp/scales/internal/store/memory"
	"github.com/rs/zerolog"
)

// RedisPrefix namespaces every key Scales writes to Redis.
const RedisPrefix = "scales:"

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})
}

// OpenRepository opens the configured transaction and user backend.
// Postgres is migrated to the latest schema and BigQuery tables are created
// when missing.
func OpenRepository(ctx context.Context, cfg *config.Config, loc *time.Location) (store.Repository, error) {
	log := logger.FromContext(ctx)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on exit")
		return memory.New(), nil

	case config.BackendPostgres:
		repo, err := postgres.Open(ctx, cfg.PostgresURL, loc)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		res, err := postgres.MigrateUp(repo.DB())
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("OpenRepository: migrate: %w", err)
		}
		log.Info().Uint("from", res.Before).Uint("to", res.After).Msg("Postgres schema ready")
		return repo, nil

	case config.BackendBigQuery:
		ds := infraBQ.Dataset{Project: cfg.GCPProject, Name: cfg.BQDataset}
		repo, err := infraBQ.NewRepository(ctx, ds, loc)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		if err := infraBQ.EnsureTables(ctx, repo.Client(), ds); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		log.Info().Str("project", ds.Project).Str("dataset", ds.Name).Msg("BigQuery dataset ready")
		return repo, nil
	}
	return nil, fmt.Errorf("OpenRepository: unknown backend %q", cfg.StoreBackend)
}

// OpenKV returns Redis when an address is configured and an in-memory store
// otherwise. The returned func releases the connection.
func OpenKV(ctx context.Context, cfg *config.Config) (kv.Store, func() error, error) {
	if cfg.RedisAddr == "" {
		return kv.NewMemory(), func() error { return nil }, nil
	}
	r, err := kv.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, 0, RedisPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("OpenKV: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return r, r.Close, nil
}

// OpenStorage connects to Cloud Storage when a bucket is configured.
// Without a bucket it returns a nil service.
func OpenStorage(ctx context.Context, cfg *config.Config) (gcs.StorageService, func() error, error) {
	if cfg.GCSBucket == "" {
		log := logger.FromContext(ctx)
		log.Warn().Msg("No GCS bucket configured, receipts stay inline and exports are download-only")
		return nil, func() error { return nil }, nil
	}
	svc, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("OpenStorage: %w", err)
	}
	return svc, svc.Close, nil
}

// NewScanner builds the Gemini extractor and a scanner using the keyword
// file when one is configured.
func NewScanner(ctx context.Context, cfg *config.Config, loc *time.Location) (*receipt.GeminiExtractor, *receipt.Scanner, error) {
	classifier := receipt.DefaultClassifier()
	if cfg.ReceiptKeywordFile != "" {
		c, err := receipt.LoadClassifier(cfg.ReceiptKeywordFile)
		if err != nil {
			return nil, nil, fmt.Errorf("NewScanner: %w", err)
		}
		classifier = c
	}
	extractor, err := receipt.NewGeminiExtractor(ctx, cfg.GeminiModel)
	if err != nil {
		return nil, nil, fmt.Errorf("NewScanner: %w", err)
	}
	return extractor, receipt.NewScanner(extractor, classifier, loc), nil
}
