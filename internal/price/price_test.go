package price

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "dollar with grouping", input: "$1,234.56", want: "1234.56", ok: true},
		{name: "rupee with spaces", input: "₹ 49,999", want: "49999", ok: true},
		{name: "plain integer", input: "49", want: "49", ok: true},
		{name: "trailing dot", input: "49.", want: "49", ok: true},
		{name: "leading dot", input: ".99", want: "0.99", ok: true},
		{name: "surrounding text", input: "Now only 12.50 USD!", want: "12.5", ok: true},
		{name: "decimal comma is lossy", input: "1.234,56 €", want: "1.23456", ok: true},
		{name: "no digits", input: "no price", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "only dot", input: ".", ok: false},
		{name: "multiple dots", input: "1.2.3", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	amount := decimal.RequireFromString("49.9")

	assert.Equal(t, "$49.90", Format(amount, "USD"))
	assert.Equal(t, "₹49.90", Format(amount, "INR"))
	assert.Equal(t, "EUR49.90", Format(amount, "EUR"))
	assert.Equal(t, "$49.90", Format(amount, ""))
}
