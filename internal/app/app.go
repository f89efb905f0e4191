// Package app wires the price finder components from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/raine/product-price-finder/config"
	"github.com/raine/product-price-finder/internal/estimate"
	"github.com/raine/product-price-finder/internal/fetch"
	"github.com/raine/product-price-finder/internal/imageref"
	"github.com/raine/product-price-finder/internal/llm"
	"github.com/raine/product-price-finder/internal/quote"
	"github.com/raine/product-price-finder/internal/storage"
	"github.com/rs/zerolog/log"
)

// App holds the wired components and the resources they own.
type App struct {
	Quotes *quote.Resolver
	Images *imageref.Resolver
	Store  *storage.SQLiteStore // nil when caching is disabled
}

// missingKeyModel fails every call; used when no Gemini key is configured so
// URL quotes still work.
type missingKeyModel struct{}

func (missingKeyModel) Describe(context.Context, []byte, string, string) (string, error) {
	return "", errors.New("GEMINI_API_KEY is not set")
}

// New builds the quote pipeline described by cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	tables, err := estimate.DefaultTables()
	if err != nil {
		return nil, err
	}

	pages := fetch.NewClient().WithRateLimit(cfg.PageFetchRPS, cfg.PageFetchBurst)
	// Image probes are not rate limited.
	probes := fetch.NewClient()

	images := imageref.NewResolver(probes).
		WithTimeout(cfg.ImageProbeTimeout).
		WithParallel(cfg.ImageProbeParallel)

	var model llm.VisionModel = missingKeyModel{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiModel(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini vision model: %w", err)
		}
		model = gemini.WithModel(cfg.GeminiModel)
		log.Info().Msg("gemini vision model initialized")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, image analysis will fail")
	}

	a := &App{Images: images}
	if !cfg.DisableCache {
		store, err := storage.NewSQLiteStore(cfg.DBPath, cfg.CacheMaxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize vision cache: %w", err)
		}
		a.Store = store
		model = llm.NewCachedModel(model, store)
		log.Info().Str("dbPath", cfg.DBPath).Msg("vision analysis caching enabled")
	}

	a.Quotes = quote.NewResolver(quote.Deps{
		Fetcher:   pages,
		Images:    images,
		Analyzer:  llm.NewVisionAnalyzer(model),
		Estimator: estimate.NewEstimator(tables),
		Demo:      tables,
	}).WithPageTimeout(cfg.PageFetchTimeout)

	return a, nil
}

// Close releases the cache database.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
