// Package estimate produces heuristic USD prices from product analyses and
// canned analyses for images that could not be fetched.
package estimate

import (
	"math/rand/v2"
	"strings"

	"github.com/raine/product-price-finder/internal/llm"
	"github.com/shopspring/decimal"
)

// Rand is the random source for the estimate jitter. *rand.Rand satisfies it.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Estimator derives a price from category and brand.
type Estimator struct {
	tables *Tables
	rand   Rand
}

// NewEstimator creates an estimator over tables using the global random
// source.
func NewEstimator(tables *Tables) *Estimator {
	return &Estimator{tables: tables, rand: globalRand{}}
}

// WithRand replaces the random source.
func (e *Estimator) WithRand(r Rand) *Estimator {
	e.rand = r
	return e
}

// Estimate returns base(category) x premium(brand) x jitter, rounded to
// cents. The result always lies within the jitter bounds of the unjittered
// price.
func (e *Estimator) Estimate(analysis llm.ProductAnalysis) decimal.Decimal {
	amount := decimal.NewFromFloat(e.BasePrice(analysis.Category))
	if e.IsPremium(analysis.Brand) {
		amount = amount.Mul(decimal.NewFromFloat(e.tables.PremiumMultiplier))
	}

	j := e.tables.Jitter
	factor := j.Min + e.rand.Float64()*(j.Max-j.Min)
	return amount.Mul(decimal.NewFromFloat(factor)).Round(2)
}

// BasePrice returns the price of the first table category contained in
// category, or the default.
func (e *Estimator) BasePrice(category string) float64 {
	category = strings.ToLower(category)
	for _, bp := range e.tables.BasePrices {
		if strings.Contains(category, bp.Category) {
			return bp.Price
		}
	}
	return e.tables.DefaultBasePrice
}

// IsPremium reports whether brand contains a premium brand name.
func (e *Estimator) IsPremium(brand string) bool {
	brand = strings.ToLower(brand)
	for _, b := range e.tables.PremiumBrands {
		if strings.Contains(brand, b) {
			return true
		}
	}
	return false
}
