package extract

import "regexp"

// Strategy describes how to pull a price and title out of one retailer's
// product page. Selectors are tried in declaration order and the first one
// that produces a usable value wins; there is no scoring.
type Strategy struct {
	Name string
	// Match is a substring of the lowercased page domain. Empty means the
	// strategy is the generic fallback.
	Match          string
	Currency       string
	DefaultTitle   string
	PriceSelectors []string
	TitleSelectors []string

	// Generic-only extras.
	MetaPriceSelector string
	TextPatterns      []TextPattern
}

// TextPattern is a currency-prefixed price regex searched over page text.
type TextPattern struct {
	Currency string
	Pattern  *regexp.Regexp
}

// Registry is the ordered list of site strategies consulted before the
// generic one.
var Registry = []Strategy{
	{
		Name:         "Amazon",
		Match:        "amazon",
		Currency:     "USD",
		DefaultTitle: "Amazon Product",
		PriceSelectors: []string{
			".a-price-whole",
			".a-price .a-offscreen",
			"#price_inside_buybox",
			".a-price-range .a-offscreen",
			"#apex_desktop .a-price .a-offscreen",
		},
		TitleSelectors: []string{
			"#productTitle",
			".product-title",
			"h1.a-size-large",
		},
	},
	{
		Name:         "Flipkart",
		Match:        "flipkart",
		Currency:     "INR",
		DefaultTitle: "Flipkart Product",
		PriceSelectors: []string{
			"._30jeq3._16Jk6d",
			"._1_WHN1",
			".CEmiEU .Nx9bqj",
		},
		TitleSelectors: []string{
			".B_NuCI",
			"._35KyD6",
			"h1.yhB1nd",
		},
	},
	{
		Name:         "eBay",
		Match:        "ebay",
		Currency:     "USD",
		DefaultTitle: "eBay Product",
		PriceSelectors: []string{
			".notranslate",
			"#mainContent .u-flL .notranslate",
			".main-price .notranslate",
		},
		TitleSelectors: []string{
			"#x-item-title-label",
			".x-item-title-label h1",
			"h1.it-ttl",
		},
	},
}

// Generic is used when no registry entry matches the domain.
var Generic = Strategy{
	Name:              "Generic",
	Currency:          "USD",
	DefaultTitle:      "Product",
	TitleSelectors:    []string{"title"},
	MetaPriceSelector: `meta[property="product:price:amount"]`,
	TextPatterns: []TextPattern{
		{Currency: "USD", Pattern: regexp.MustCompile(`\$[\d,]+\.?\d*`)},
		{Currency: "INR", Pattern: regexp.MustCompile(`₹[\d,]+\.?\d*`)},
		{Currency: "EUR", Pattern: regexp.MustCompile(`€[\d,]+\.?\d*`)},
		{Currency: "GBP", Pattern: regexp.MustCompile(`£[\d,]+\.?\d*`)},
	},
}

// StrategyFor picks the first registry strategy whose Match is contained in
// domain, or Generic.
func StrategyFor(domain string) Strategy {
	for _, s := range Registry {
		if containsFold(domain, s.Match) {
			return s
		}
	}
	return Generic
}
