// Package money parses statement amount cells into exact decimals and formats
// them for display with ISO-4217 currency rules.
package money

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	INR = "INR" // Indian Rupee
	USD = "USD" // US Dollar
	EUR = "EUR" // Euro
	GBP = "GBP" // British Pound
)

// DefaultCurrency is used when a statement carries no currency hint.
const DefaultCurrency = INR

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

var currencyMarkers = []string{"₹", "Rs.", "Rs", "INR", "$", "€", "£", "USD", "EUR", "GBP"}

// Parse reads a statement cell as a decimal amount. It accepts thousands
// separators, currency symbols, a trailing minus and accounting parentheses.
// The second return value is false for empty or non-numeric cells.
func Parse(cell string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return decimal.Zero, false
	}

	for _, marker := range currencyMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// ToMinor converts a decimal amount to minor units for the currency.
func ToMinor(amount decimal.Decimal, currencyCode string) int64 {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(DefaultCurrency)
	}
	multiplier := decimal.New(1, int32(currency.Fraction))
	return amount.Mul(multiplier).Round(0).IntPart()
}

// Display formats an amount with the currency symbol (e.g., "₹1,234.50").
func Display(amount decimal.Decimal, currencyCode string) string {
	if money.GetCurrency(currencyCode) == nil {
		currencyCode = DefaultCurrency
	}
	return money.New(ToMinor(amount, currencyCode), currencyCode).Display()
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
