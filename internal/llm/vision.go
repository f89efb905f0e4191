package llm

import (
	"context"
	"errors"
)

// Sentinel values used for fields the vision model could not determine.
const (
	Unknown         = "Unknown"
	GeneralCategory = "General"
	UnknownRange    = "Unable to estimate"
)

// ErrVisionUnavailable wraps transport-level failures of the vision model.
// It is the only analysis failure that aborts a quote.
var ErrVisionUnavailable = errors.New("vision model unavailable")

// ProductAnalysis is the structured description of a product photo.
// Every field is always populated; use Normalize to fill sentinels.
type ProductAnalysis struct {
	ProductName         string   `json:"product_name" yaml:"product_name"`
	Brand               string   `json:"brand" yaml:"brand"`
	Category            string   `json:"category" yaml:"category"`
	Model               string   `json:"model" yaml:"model"`
	KeyFeatures         []string `json:"key_features" yaml:"key_features"`
	EstimatedPriceRange string   `json:"estimated_price_range" yaml:"estimated_price_range"`
	Confidence          string   `json:"confidence" yaml:"confidence"`

	// RawResponse keeps the model reply when it could not be parsed.
	RawResponse string `json:"-" yaml:"-"`
}

// Normalize returns a copy with sentinels filled in for empty fields.
func (a ProductAnalysis) Normalize() ProductAnalysis {
	out := a
	out.ProductName = orDefault(a.ProductName, "Unknown Product")
	out.Brand = orDefault(a.Brand, Unknown)
	out.Category = orDefault(a.Category, GeneralCategory)
	out.Model = orDefault(a.Model, Unknown)
	out.EstimatedPriceRange = orDefault(a.EstimatedPriceRange, UnknownRange)
	out.Confidence = orDefault(a.Confidence, "Medium")
	out.KeyFeatures = append([]string{}, a.KeyFeatures...)
	return out
}

// Known reports whether v carries information rather than a sentinel.
func Known(v string) bool {
	switch v {
	case "", Unknown, GeneralCategory, UnknownRange:
		return false
	}
	return true
}

// VisionModel is the opaque image understanding capability.
type VisionModel interface {
	// Describe sends the prompt and image to the model and returns its raw
	// text reply.
	Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
