package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const productPrompt = `Analyze this product image and provide the following information in JSON format:
{
    "product_name": "Name of the product",
    "brand": "Brand name if visible",
    "category": "Product category (electronics, clothing, etc.)",
    "model": "Model number or specific variant if visible",
    "key_features": ["List of key features visible"],
    "estimated_price_range": "USD price range estimate (e.g., '$50-100')",
    "confidence": "High/Medium/Low confidence in identification"
}

Be as specific as possible about the product details.`

// VisionAnalyzer turns product photos into ProductAnalysis records.
type VisionAnalyzer struct {
	model VisionModel
}

// NewVisionAnalyzer creates an analyzer on top of a vision model.
func NewVisionAnalyzer(model VisionModel) *VisionAnalyzer {
	return &VisionAnalyzer{model: model}
}

// Prompt returns the instruction sent with every image.
func Prompt() string {
	return productPrompt
}

// Analyze describes the product in image. A transport failure of the model
// is returned wrapped in ErrVisionUnavailable. A malformed reply is not an
// error: it produces a low-confidence analysis carrying the raw reply.
func (a *VisionAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (ProductAnalysis, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	reply, err := a.model.Describe(ctx, image, mimeType, productPrompt)
	if err != nil {
		return ProductAnalysis{}, fmt.Errorf("%w: %v", ErrVisionUnavailable, err)
	}

	analysis, err := ParseAnalysis(reply)
	if err != nil {
		log.Warn().Err(err).Msg("vision reply was not a valid analysis, using low confidence analysis")
		return degradedAnalysis(reply), nil
	}
	return analysis, nil
}

// analysisFields are the JSON keys of ProductAnalysis. A reply must carry at
// least one of them.
var analysisFields = []string{
	"product_name", "brand", "category", "model",
	"key_features", "estimated_price_range", "confidence",
}

// ParseAnalysis decodes a model reply, tolerating markdown code fences. The
// reply must be a JSON object with at least one analysis field.
func ParseAnalysis(reply string) (ProductAnalysis, error) {
	text := []byte(stripCodeFence(reply))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(text, &fields); err != nil {
		return ProductAnalysis{}, fmt.Errorf("failed to parse analysis json: %w", err)
	}
	if !hasAnyField(fields, analysisFields) {
		return ProductAnalysis{}, errors.New("analysis json has no product fields")
	}

	var analysis ProductAnalysis
	if err := json.Unmarshal(text, &analysis); err != nil {
		return ProductAnalysis{}, fmt.Errorf("failed to parse analysis json: %w", err)
	}
	return analysis.Normalize(), nil
}

func hasAnyField(fields map[string]json.RawMessage, names []string) bool {
	for _, name := range names {
		if _, ok := fields[name]; ok {
			return true
		}
	}
	return false
}

// stripCodeFence returns the body of the first ```json (or bare ```) fenced
// block, or the trimmed text when there is no fence.
func stripCodeFence(text string) string {
	for _, fence := range []string{"```json", "```"} {
		_, rest, found := strings.Cut(text, fence)
		if !found {
			continue
		}
		body, _, _ := strings.Cut(rest, "```")
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(text)
}

func degradedAnalysis(reply string) ProductAnalysis {
	return ProductAnalysis{
		ProductName:         "Product identified but details unclear",
		Brand:               Unknown,
		Category:            GeneralCategory,
		Model:               Unknown,
		KeyFeatures:         []string{"Product visible in image"},
		EstimatedPriceRange: UnknownRange,
		Confidence:          "Low",
		RawResponse:         reply,
	}
}
