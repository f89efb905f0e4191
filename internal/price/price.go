package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse extracts a numeric price from free-form price text such as "$1,234.56"
// or "₹ 49,999". Every character except ASCII digits and '.' is dropped before
// parsing, so grouping separators and decimal commas are not told apart:
// "1.234,56" parses as 1.23456. Callers rely on this exact behavior.
//
// The second return value is false when nothing numeric remains or the
// remainder is not a valid number (e.g. "1.2.3").
func Parse(text string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return decimal.Zero, false
	}

	// decimal.NewFromString accepts exponents and signs, neither of which can
	// appear here, but a lone "." or multiple dots still need rejecting.
	if strings.Count(clean, ".") > 1 || strings.Trim(clean, ".") == "" {
		return decimal.Zero, false
	}
	clean = strings.TrimSuffix(clean, ".")
	if strings.HasPrefix(clean, ".") {
		clean = "0" + clean
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Symbol returns the display symbol for a currency code. Only USD and INR have
// dedicated symbols; other codes are shown as-is.
func Symbol(currency string) string {
	switch currency {
	case "USD", "":
		return "$"
	case "INR":
		return "₹"
	default:
		return currency
	}
}

// Format renders an amount with its currency symbol and two decimals.
func Format(amount decimal.Decimal, currency string) string {
	return Symbol(currency) + amount.StringFixed(2)
}
