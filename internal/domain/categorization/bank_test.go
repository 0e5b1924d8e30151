package categorization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankMatcher(t *testing.T) {
	bm := NewBankMatcher([]string{"HDFC Bank", "ICICI Bank", "State Bank of India", " "})
	require.Equal(t, 3, bm.Len())

	t.Run("full name in subject", func(t *testing.T) {
		m := bm.Match("Your HDFC Bank e-statement for March", 80)
		require.NotNil(t, m)
		assert.Equal(t, "HDFC Bank", m.BankName)
		assert.Equal(t, 100, m.Score)
	})

	t.Run("short code in sender", func(t *testing.T) {
		m := bm.Match("estatement@icici.example.com", 80)
		require.NotNil(t, m)
		assert.Equal(t, "ICICI Bank", m.BankName)
		assert.Equal(t, 90, m.Score)
	})

	t.Run("typo in file name", func(t *testing.T) {
		m := bm.Match("hdfk_statement_2024.csv", 70)
		require.NotNil(t, m)
		assert.Equal(t, "HDFC Bank", m.BankName)
		assert.Equal(t, 75, m.Score)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, bm.Match("monthly newsletter", 80))
		assert.Nil(t, bm.Match("", 0))
	})

	t.Run("rank is ordered", func(t *testing.T) {
		ranked := bm.Rank("state bank of india statement")
		require.Len(t, ranked, 3)
		assert.Equal(t, "State Bank of India", ranked[0].BankName)
		assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
		assert.GreaterOrEqual(t, ranked[1].Score, ranked[2].Score)
	})
}
