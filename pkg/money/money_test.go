package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		cell   string
		want   string
		wantOK bool
	}{
		{"plain integer", "15000", "15000", true},
		{"decimal", "1234.56", "1234.56", true},
		{"thousands separator", "1,23,456.78", "123456.78", true},
		{"rupee symbol", "₹ 2,500", "2500", true},
		{"rs prefix", "Rs. 99.50", "99.5", true},
		{"dollar", "$12.00", "12", true},
		{"negative", "-500", "-500", true},
		{"parentheses", "(75.25)", "-75.25", true},
		{"trailing minus", "40-", "-40", true},
		{"padded", "  250  ", "250", true},
		{"empty", "", "0", false},
		{"whitespace", "   ", "0", false},
		{"text", "n/a", "0", false},
		{"nan", "NaN", "0", false},
		{"symbol only", "₹", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.cell)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToMinor(t *testing.T) {
	assert.Equal(t, int64(123456), ToMinor(decimal.RequireFromString("1234.56"), INR))
	assert.Equal(t, int64(1235), ToMinor(decimal.RequireFromString("12.345"), USD))
	assert.Equal(t, int64(500), ToMinor(decimal.NewFromInt(5), "XXX-unknown"))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "₹1,234.50", Display(decimal.RequireFromString("1234.5"), INR))
	assert.Equal(t, "$10.00", Display(decimal.NewFromInt(10), USD))
	assert.Equal(t, "₹0.00", Display(decimal.Zero, ""))
}

func TestSum(t *testing.T) {
	total := Sum(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	assert.True(t, total.Equal(decimal.RequireFromString("0.3")))
	assert.True(t, Sum().IsZero())
}

func TestDecimalJSONIsNumeric(t *testing.T) {
	data, err := json.Marshal(map[string]decimal.Decimal{"amount": decimal.RequireFromString("15000")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount": 15000}`, string(data))
}
