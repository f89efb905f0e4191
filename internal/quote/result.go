package quote

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/raine/product-price-finder/internal/extract"
	"github.com/raine/product-price-finder/internal/llm"
	"github.com/raine/product-price-finder/internal/market"
	"github.com/raine/product-price-finder/internal/price"
	"github.com/shopspring/decimal"
)

// Kind is the terminal state of a quote.
type Kind int

const (
	// KindPriceFound is a real price extracted from a product page.
	KindPriceFound Kind = iota + 1
	// KindNoPrice is a fetched page on which no strategy found a price.
	KindNoPrice
	// KindEstimate is a heuristic estimate for a product photo.
	KindEstimate
)

func (k Kind) String() string {
	switch k {
	case KindPriceFound:
		return "price_found"
	case KindNoPrice:
		return "no_price"
	case KindEstimate:
		return "estimate"
	default:
		return "unknown"
	}
}

// Result is the outcome of resolving one Request.
type Result struct {
	RequestID string
	Kind      Kind

	// URL path
	Quote extract.PriceQuote

	// Image path
	Analysis llm.ProductAnalysis
	Estimate decimal.Decimal
	Links    []market.Link

	// Demo is set when the analysis came from the demo catalog rather than
	// the vision model. Disclaimer is always non-empty in that case.
	Demo       bool
	Disclaimer string
}

const noPriceText = "❌ Unable to fetch price from this URL. Please try a different product link."

const priceFoundTemplate = `
	💰 **Product Price Found!**

	**Product:** %s
	**Current Price:** %s
	**Source:** %s
	**Currency:** %s

	🔗 **Product Link:** %s

	✅ This is the current listed price on the website.
`

const analysisTemplate = `
	💰 **Product Price Analysis**

	**🔍 AI Analysis:**
	**%s:** %s
	**Brand:** %s
	**Category:** %s
	**Model:** %s
	**Confidence:** %s

	**💵 Price Information:**
	**Estimated Price:** %s USD
	**Price Range:** %s

	**🛒 Where to Buy:**
	%s

	📝 **Note:** %s
`

const demoBanner = `
	⚠️ **DEMO MODE**: Unable to access your uploaded image. Using sample analysis for demonstration.
	_%s_
`

const (
	estimateNote = "Prices are estimates based on AI analysis. For exact pricing, visit the retailer websites directly."
	demoNote     = "This is a demo analysis. To get real product analysis, please ensure image upload is working properly or try providing a product URL instead."
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// Text renders the result as the markdown shown to the user.
func (r *Result) Text() string {
	switch r.Kind {
	case KindPriceFound:
		q := r.Quote
		return formatReplyText(priceFoundTemplate,
			q.Title,
			price.Format(*q.Price, q.Currency),
			q.Source,
			q.Currency,
			q.URL,
		)
	case KindEstimate:
		return r.estimateText()
	default:
		return noPriceText
	}
}

func (r *Result) estimateText() string {
	a := r.Analysis
	label, note := "Product", estimateNote
	if r.Demo {
		label, note = "Demo Product", demoNote
	}

	body := formatReplyText(analysisTemplate,
		label, a.ProductName,
		a.Brand,
		a.Category,
		a.Model,
		a.Confidence,
		price.Format(r.Estimate, "USD"),
		a.EstimatedPriceRange,
		formatLinks(r.Links),
		note,
	)

	if r.Demo {
		return formatReplyText(demoBanner, r.Disclaimer) + "\n\n" + body
	}
	return body
}

func formatLinks(links []market.Link) string {
	if len(links) == 0 {
		return "Search links could not be generated. Please search manually on e-commerce sites."
	}
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, fmt.Sprintf("🛒 **%s:** %s", l.Name, l.URL))
	}
	return strings.Join(lines, "\n")
}
