package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raine/product-price-finder/internal/price"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PriceQuote is the price information extracted from a product page.
// A nil Price means no strategy found a price; it is a valid result, not an
// error.
type PriceQuote struct {
	Price    *decimal.Decimal
	Currency string
	Title    string
	Source   string
	URL      string
}

// HasPrice reports whether a usable (non-zero) price was found.
func (q PriceQuote) HasPrice() bool {
	return q.Price != nil && !q.Price.IsZero()
}

// ParseHTML parses a fetched page body and runs Extract on it.
func ParseHTML(body []byte, domain, pageURL string) (PriceQuote, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return PriceQuote{}, fmt.Errorf("parse html: %w", err)
	}
	return Extract(doc, domain, pageURL), nil
}

// Extract selects the strategy for domain and applies it to doc. It never
// fails: when nothing matches, Price is nil and Title falls back to the
// strategy's default.
func Extract(doc *goquery.Document, domain, pageURL string) PriceQuote {
	s := StrategyFor(strings.ToLower(domain))

	q := PriceQuote{
		Currency: s.Currency,
		Source:   s.Name,
		URL:      pageURL,
	}

	if amount, ok := firstPrice(doc, s.PriceSelectors); ok {
		q.Price = &amount
	}

	if s.MetaPriceSelector != "" && q.Price == nil {
		if content, exists := doc.Find(s.MetaPriceSelector).First().Attr("content"); exists {
			if amount, ok := price.Parse(content); ok && !amount.IsZero() {
				q.Price = &amount
			}
		}
	}

	if len(s.TextPatterns) > 0 && q.Price == nil {
		if amount, currency, ok := firstTextMatch(doc.Text(), s.TextPatterns); ok {
			q.Price = &amount
			q.Currency = currency
		}
	}

	q.Title = firstTitle(doc, s.TitleSelectors)
	if q.Title == "" {
		q.Title = s.DefaultTitle
	}

	log.Debug().
		Str("strategy", s.Name).
		Str("domain", domain).
		Bool("priceFound", q.Price != nil).
		Msg("price extraction finished")

	return q
}

// firstPrice returns the first selector result whose text parses to a
// non-zero price. Only the first element matched by each selector is
// considered.
func firstPrice(doc *goquery.Document, selectors []string) (decimal.Decimal, bool) {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if amount, ok := price.Parse(strings.TrimSpace(el.Text())); ok && !amount.IsZero() {
			return amount, true
		}
	}
	return decimal.Zero, false
}

func firstTitle(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstTextMatch searches text with each pattern in order. The first pattern
// that matches at all decides the outcome, using its first match.
func firstTextMatch(text string, patterns []TextPattern) (decimal.Decimal, string, bool) {
	for _, p := range patterns {
		m := p.Pattern.FindString(text)
		if m == "" {
			continue
		}
		if amount, ok := price.Parse(m); ok && !amount.IsZero() {
			return amount, p.Currency, true
		}
	}
	return decimal.Zero, "", false
}

func containsFold(s, substr string) bool {
	return substr != "" && strings.Contains(strings.ToLower(s), substr)
}
