package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sam02425/Document-Portal/internal/cache"
	"github.com/sam02425/Document-Portal/internal/config"
	"github.com/sam02425/Document-Portal/internal/logging"
	"github.com/sam02425/Document-Portal/internal/ocr"
	"github.com/sam02425/Document-Portal/internal/pipeline"
	"github.com/sam02425/Document-Portal/internal/vision"
)

// app holds the wired pipeline and everything that must be closed with it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    *cache.Cache
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, logger, nil
}

// newApp wires the cache tiers, OCR engine, vision extractor and pipeline.
// Neither Redis nor Vertex AI is required: without them the pipeline runs
// with an in-process cache and degrades low-confidence pages.
func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	var tier cache.Tier
	if cfg.Cache.RedisURL != "" {
		rt, err := cache.NewRedisTier(cfg.Cache.RedisURL, cfg.Cache.RedisTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to configure redis cache: %w", err)
		}
		if err := rt.Ping(ctx); err != nil {
			// The cache degrades to tier 1 per call; keep going.
			logger.Warn("cache.l2.unavailable", "op", "ping", "error", err)
		}
		tier = rt
	}
	c, err := cache.New(cache.Options{
		L1Size: cfg.Cache.L1Size,
		TTLs: map[cache.Namespace]time.Duration{
			cache.NamespaceOCR:        cfg.Cache.OCRTTL,
			cache.NamespaceVision:     cfg.Cache.VisionTTL,
			cache.NamespaceExtraction: cfg.Cache.ExtractionTTL,
		},
		Tier:   tier,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	a.cache = c
	a.closers = append(a.closers, c.Close)

	engine := ocr.NewTesseractEngine(cfg.OCR.Language, cfg.OCR.TessdataPrefix)
	info := engine.Info()
	if info.Available {
		logger.Info("ocr.engine.ready", "backend", info.Backend, "version", info.Version, "language", info.Language)
	} else {
		logger.Warn("ocr.engine.unavailable", "backend", info.Backend, "error", info.Error)
	}

	deps := pipeline.Deps{Cache: c, OCR: engine, Logger: logger}
	if cfg.Vision.Project != "" {
		g, err := vision.NewGemini(ctx, cfg.Vision.Project, cfg.Vision.Region, cfg.Vision.Model, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create vision extractor: %w", err)
		}
		deps.Vision = g
		a.closers = append(a.closers, g.Close)
		logger.Info("vision.ready", "model", cfg.Vision.Model, "region", cfg.Vision.Region)
	} else {
		logger.Info("vision.disabled", "reason", "VISION_PROJECT not set")
	}

	a.pipeline = pipeline.New(deps, pipeline.OptionsFromConfig(cfg))
	return a, nil
}

// Close releases resources in reverse order of creation.
func (a *app) Close() {
	if a.cache != nil {
		st := a.cache.Stats()
		a.logger.Info("cache.stats",
			"l1_hits", st.L1Hits,
			"l1_misses", st.L1Misses,
			"l2_hits", st.L2Hits,
			"l2_misses", st.L2Misses,
			"l2_errors", st.L2Errors)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("app.close.failed", "error", err)
		}
	}
	a.closers = nil
}
