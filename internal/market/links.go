// Package market builds retailer search links for an analysed product.
package market

import (
	"net/url"
	"strings"

	"github.com/raine/product-price-finder/internal/llm"
)

// Link is a search URL on one retailer.
type Link struct {
	Name string
	URL  string
}

type retailer struct {
	name  string
	base  string
	space string
}

var retailers = []retailer{
	{name: "Amazon", base: "https://www.amazon.com/s?k=", space: "+"},
	{name: "Flipkart", base: "https://www.flipkart.com/search?q=", space: "%20"},
	{name: "eBay", base: "https://www.ebay.com/sch/i.html?_nkw=", space: "+"},
}

// Query returns "<brand> <product name>" with sentinels dropped, or the
// category when both are unknown.
func Query(analysis llm.ProductAnalysis) string {
	var parts []string
	for _, v := range []string{analysis.Brand, analysis.ProductName} {
		if known(v) {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	if q := strings.TrimSpace(strings.Join(parts, " ")); q != "" {
		return q
	}
	if known(analysis.Category) {
		return strings.TrimSpace(analysis.Category)
	}
	return ""
}

// Build returns search links on Amazon, Flipkart and eBay, in that order.
func Build(analysis llm.ProductAnalysis) []Link {
	q := Query(analysis)
	links := make([]Link, 0, len(retailers))
	for _, r := range retailers {
		links = append(links, Link{
			Name: r.name,
			URL:  r.base + escapeQuery(q, r.space),
		})
	}
	return links
}

// escapeQuery query-escapes q, writing each space as the retailer's space
// encoding. A literal "+" is escaped to %2B, so every "+" left is a space.
func escapeQuery(q, space string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", space)
}

func known(v string) bool {
	return v != "Unknown Product" && llm.Known(strings.TrimSpace(v))
}
