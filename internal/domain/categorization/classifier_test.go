package categorization

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewDefaultClassifier()

	tests := []struct {
		description string
		want        string
	}{
		{"Rent Payment", Rent},
		{"Rent and groceries", Rent},
		{"BIG BAZAAR KORAMANGALA", Groceries},
		{"Local Supermarket", Groceries},
		{"UBER TRIP 8842", Transport},
		{"Fuel station HP", Transport},
		{"Cafe Coffee Day", Dining},
		{"Salary Credit", Income},
		{"Savings interest", Income},
		{"Electricity board", Utilities},
		{"Mobile bill", Utilities},
		{"AMAZON PAY", Shopping},
		{"Flipkart order", Shopping},
		{"ATM withdrawal", Other},
		{"", Other},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.description))
		})
	}
}

func TestClassifier_PriorityOrder(t *testing.T) {
	c := NewDefaultClassifier()

	// Income outranks Utilities and Shopping.
	assert.Equal(t, Income, c.Classify("credit card bill amazon"))
	// Groceries outranks Transport even when the transport keyword comes first.
	assert.Equal(t, Groceries, c.Classify("uber to the supermarket"))
}

func TestClassifier_DuplicateKeywordBelongsToFirstRule(t *testing.T) {
	c := NewClassifier([]Rule{
		{Category: Rent, Keywords: []string{"house"}},
		{Category: Utilities, Keywords: []string{"HOUSE", "power"}},
	})

	assert.Equal(t, 2, c.PatternCount())
	assert.Equal(t, Rent, c.Classify("house payment"))
	assert.Equal(t, Utilities, c.Classify("power"))
}

func TestClassifier_Empty(t *testing.T) {
	c := NewClassifier(nil)
	assert.Equal(t, Other, c.Classify("anything"))
}

func TestClassifier_Categorize(t *testing.T) {
	c := NewDefaultClassifier()
	txs := []statement.Transaction{
		{Date: "2015-04-01", Description: "Rent Payment", Debit: decimal.NewFromInt(15000)},
		{Date: "2015-04-02", Description: "Salary Credit", Credit: decimal.NewFromInt(50000)},
	}

	out := c.Categorize(txs)

	require.Len(t, out, 2)
	assert.Equal(t, Rent, out[0].Category)
	assert.Equal(t, Income, out[1].Category)
	assert.Empty(t, txs[0].Category)
	assert.Empty(t, txs[1].Category)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewDefaultClassifier()
	for i := 0; i < 50; i++ {
		assert.Equal(t, Rent, c.Classify("rent grocery uber cafe salary bill amazon"))
	}
}
