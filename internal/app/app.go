// Package app wires the extraction core shared by the HTTP server and the
// batch CLI: semantic model, tier controller, outline cache and extractor.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docoutline/internal/cache"
	"github.com/dgallion1/docoutline/internal/chunker"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/fallback"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/semantic"
	"github.com/dgallion1/docoutline/internal/signal"
)

// ModelInfo is the read-only view of the semantic model used for reporting.
type ModelInfo interface {
	Loaded() bool
	Stats() *semantic.LatencyStats
}

// Core holds the long-lived components built from one Config.
type Core struct {
	Model      *semantic.Model // nil when the semantic tier is off
	Controller *fallback.Controller
	Cache      *cache.Store // nil when CachePath is empty
	Extractor  *outline.Extractor
}

// New builds the core. The model is loaded lazily by the first probe, so New
// never blocks on model initialization.
func New(cfg config.Config, log *slog.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	force, err := fallback.ParseTier(cfg.ForceTier)
	if err != nil {
		return nil, err
	}

	c := &Core{}

	var (
		prober     fallback.Prober
		classifier signal.Classifier
	)
	if cfg.ModelEnabled() && force != fallback.TierHybrid && force != fallback.TierBasic {
		c.Model = semantic.NewModel(
			semantic.FastEmbedLoader(semantic.FastEmbedConfig{
				Model:    cfg.ModelName,
				CacheDir: cfg.ModelCacheDir,
			}),
			cfg.ModelInitTimeout,
			cfg.ModelProbeTimeout,
			nil,
			log,
		)
		prober = c.Model
		classifier = c.Model
	}
	c.Controller = fallback.NewController(prober, cfg.ModelRetryCap, force, log)

	if cfg.CachePath != "" {
		c.Cache, err = cache.Open(cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("opening outline cache: %w", err)
		}
	}

	chunkCfg := chunker.DefaultConfig()
	chunkCfg.ChunkSize = cfg.DefaultChunkSize
	chunkCfg.ChunkOverlap = cfg.DefaultChunkOverlap

	c.Extractor = outline.New(c.Controller, classifier, outline.Options{
		Budget:    cfg.DocumentBudget,
		BatchSize: cfg.SemanticBatchSize,
		Chunk:     chunkCfg,
		Cache:     c.Cache,
	}, log)
	return c, nil
}

// ModelInfo returns the model for reporting, or a nil interface when the
// semantic tier is off.
func (c *Core) ModelInfo() ModelInfo {
	if c.Model == nil {
		return nil
	}
	return c.Model
}

// Close releases the model and the cache.
func (c *Core) Close() error {
	var errs []error
	if c.Model != nil {
		errs = append(errs, c.Model.Close())
	}
	if c.Cache != nil {
		errs = append(errs, c.Cache.Close())
	}
	return errors.Join(errs...)
}
