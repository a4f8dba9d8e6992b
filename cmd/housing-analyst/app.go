package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/joelkehle/housing-analyst/internal/aicache"
	"github.com/joelkehle/housing-analyst/internal/analysis"
	"github.com/joelkehle/housing-analyst/internal/config"
	"github.com/joelkehle/housing-analyst/internal/listing"
	"github.com/joelkehle/housing-analyst/internal/llm"
	"github.com/joelkehle/housing-analyst/internal/metrics"
	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

// app holds the components shared by serve and analyze.
type app struct {
	store    *listing.SQLiteStore
	limiter  *ratelimit.Limiter
	cache    *aicache.Cache
	metrics  *metrics.Collector
	pipeline *analysis.Pipeline
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	store, err := listing.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	anthropicModel, err := llm.NewAnthropicModel(cfg.Model.APIKey, cfg.Model.Name)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("model: %w", err)
	}
	model := llm.NewBreaker(llm.WithTimeout(anthropicModel, cfg.Model.Timeout), cfg.Breaker, logger)

	limiter := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.Limits.PerMinute,
		PerDay:    cfg.Limits.PerDay,
	})
	cache := aicache.New(aicache.Config{MaxSize: cfg.Cache.MaxSize})

	collector := metrics.NewCollector()
	collector.WatchLimiter(limiter)
	collector.WatchCache(cache)

	pipeline, err := analysis.NewPipeline(analysis.Config{
		Store:          store,
		Model:          model,
		Limiter:        limiter,
		Cache:          cache,
		Logger:         logger,
		Recorder:       collector,
		DedupeInFlight: cfg.Pipeline.DedupeInFlight,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("analysis pipeline ready",
		zap.String("database", cfg.Database.Path),
		zap.String("model", anthropicModel.ModelName()),
		zap.Int("per_minute", cfg.Limits.PerMinute),
		zap.Int("per_day", cfg.Limits.PerDay),
		zap.Int("cache_max_size", cfg.Cache.MaxSize),
	)
	return &app{
		store:    store,
		limiter:  limiter,
		cache:    cache,
		metrics:  collector,
		pipeline: pipeline,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
