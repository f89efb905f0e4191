// Package quote resolves a price for a product URL or product photo.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/raine/product-price-finder/internal/estimate"
	"github.com/raine/product-price-finder/internal/extract"
	"github.com/raine/product-price-finder/internal/fetch"
	"github.com/raine/product-price-finder/internal/imageref"
	"github.com/raine/product-price-finder/internal/llm"
	"github.com/raine/product-price-finder/internal/market"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ImageSource turns image inputs into bytes.
type ImageSource interface {
	ResolveInline(data string) (imageref.Outcome, error)
	Resolve(ctx context.Context, imageID string) imageref.Outcome
}

// Analyzer describes a product photo.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (llm.ProductAnalysis, error)
}

// Estimator prices an analysis heuristically.
type Estimator interface {
	Estimate(analysis llm.ProductAnalysis) decimal.Decimal
}

// DemoCatalog provides canned analyses for unreachable images.
type DemoCatalog interface {
	DemoAnalysis(imageID string) llm.ProductAnalysis
}

// Deps are the collaborators of a Resolver.
type Deps struct {
	Fetcher   fetch.Fetcher
	Images    ImageSource
	Analyzer  Analyzer
	Estimator Estimator
	Demo      DemoCatalog
}

// Resolver runs the URL and image pipelines. It holds no per-request state.
type Resolver struct {
	deps        Deps
	pageTimeout time.Duration
}

// NewResolver creates a resolver.
func NewResolver(deps Deps) *Resolver {
	return &Resolver{deps: deps, pageTimeout: fetch.DefaultTimeout}
}

// WithPageTimeout sets the product page fetch timeout.
func (r *Resolver) WithPageTimeout(timeout time.Duration) *Resolver {
	if timeout > 0 {
		r.pageTimeout = timeout
	}
	return r
}

// Resolve validates req and runs the matching pipeline. Invalid input fails
// with ErrInvalidInput before any network call. A page that cannot be
// fetched fails with *FetchError; vision transport failures wrap
// llm.ErrVisionUnavailable.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	mode, err := req.Validate()
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	logger := log.With().Str("requestID", requestID).Str("mode", mode.String()).Logger()
	start := time.Now()

	var res *Result
	switch mode {
	case ModeURL:
		res, err = r.resolveURL(ctx, logger, req.ProductURL)
	case ModeInlineImage:
		res, err = r.resolveInline(ctx, logger, req.InlineImageData)
	case ModeImageReference:
		res, err = r.resolveReference(ctx, logger, req.ImageReference)
	}
	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("quote failed")
		return nil, err
	}

	res.RequestID = requestID
	logger.Info().
		Str("kind", res.Kind.String()).
		Bool("demo", res.Demo).
		Dur("elapsed", time.Since(start)).
		Msg("quote resolved")
	return res, nil
}

func (r *Resolver) resolveURL(ctx context.Context, logger zerolog.Logger, pageURL string) (*Result, error) {
	domain, err := pageDomain(pageURL)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"User-Agent": fetch.BrowserUserAgent}
	resp, err := r.deps.Fetcher.Get(ctx, pageURL, headers, r.pageTimeout)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: pageURL, Status: resp.StatusCode}
	}

	q, err := extract.ParseHTML(resp.Body, domain, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read product page: %w", err)
	}

	logger.Debug().
		Str("domain", domain).
		Str("source", q.Source).
		Bool("hasPrice", q.HasPrice()).
		Msg("product page extracted")

	if !q.HasPrice() {
		return &Result{Kind: KindNoPrice, Quote: q}, nil
	}
	return &Result{Kind: KindPriceFound, Quote: q}, nil
}

func (r *Resolver) resolveInline(ctx context.Context, logger zerolog.Logger, data string) (*Result, error) {
	outcome, err := r.deps.Images.ResolveInline(data)
	if err != nil {
		if errors.Is(err, imageref.ErrInvalidImageData) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}
	return r.analyzeImage(ctx, logger, outcome)
}

func (r *Resolver) resolveReference(ctx context.Context, logger zerolog.Logger, imageID string) (*Result, error) {
	outcome := r.deps.Images.Resolve(ctx, imageID)
	if outcome.Found {
		logger.Debug().Str("candidate", outcome.Candidate).Msg("image fetched")
		return r.analyzeImage(ctx, logger, outcome)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info().Str("imageID", imageID).Msg("image not reachable, using demo analysis")
	analysis := r.deps.Demo.DemoAnalysis(imageID)
	res := r.priced(analysis)
	res.Demo = true
	res.Disclaimer = estimate.DemoDisclaimer(imageID)
	return res, nil
}

func (r *Resolver) analyzeImage(ctx context.Context, logger zerolog.Logger, outcome imageref.Outcome) (*Result, error) {
	analysis, err := r.deps.Analyzer.Analyze(ctx, outcome.Data, outcome.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze image: %w", err)
	}
	logger.Debug().
		Str("product", analysis.ProductName).
		Str("category", analysis.Category).
		Str("confidence", analysis.Confidence).
		Msg("image analyzed")
	return r.priced(analysis), nil
}

func (r *Resolver) priced(analysis llm.ProductAnalysis) *Result {
	return &Result{
		Kind:     KindEstimate,
		Analysis: analysis,
		Estimate: r.deps.Estimator.Estimate(analysis),
		Links:    market.Build(analysis),
	}
}
