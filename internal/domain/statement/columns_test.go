package statement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveColumns(t *testing.T) {
	t.Run("matches aliases case-insensitively", func(t *testing.T) {
		cols, err := ResolveColumns([]string{" Txn Date ", "NARRATION", "Withdrawal", "Deposit", "Closing Balance"})

		require.NoError(t, err)
		assert.Equal(t, " Txn Date ", cols.Date)
		assert.Equal(t, "NARRATION", cols.Description)
		assert.Equal(t, "Withdrawal", cols.Debit)
		assert.Equal(t, "Deposit", cols.Credit)
		assert.Equal(t, "Closing Balance", cols.Balance)
		assert.Empty(t, cols.Amount)
		assert.False(t, cols.DescriptionFallback)
	})

	t.Run("first alias in list order wins", func(t *testing.T) {
		cols, err := ResolveColumns([]string{"Value Date", "Date", "Desc", "Description", "Balance", "Available Balance"})

		require.NoError(t, err)
		assert.Equal(t, "Date", cols.Date)
		assert.Equal(t, "Description", cols.Description)
		assert.Equal(t, "Balance", cols.Balance)
	})

	t.Run("missing date column fails", func(t *testing.T) {
		_, err := ResolveColumns([]string{"Description", "Debit", "Credit"})

		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingRequiredColumn))

		var mce *MissingColumnError
		require.ErrorAs(t, err, &mce)
		assert.Equal(t, FieldDate, mce.Field)
	})

	t.Run("description falls back to second column", func(t *testing.T) {
		cols, err := ResolveColumns([]string{"Date", "Ref No", "Debit"})

		require.NoError(t, err)
		assert.Equal(t, "Ref No", cols.Description)
		assert.True(t, cols.DescriptionFallback)
	})

	t.Run("single column table has no description", func(t *testing.T) {
		cols, err := ResolveColumns([]string{"Date"})

		require.NoError(t, err)
		assert.Empty(t, cols.Description)
		assert.False(t, cols.DescriptionFallback)
	})

	t.Run("amount column only when debit and credit are absent", func(t *testing.T) {
		cols, err := ResolveColumns([]string{"Date", "Details", " Amount "})
		require.NoError(t, err)
		assert.Equal(t, " Amount ", cols.Amount)

		cols, err = ResolveColumns([]string{"Date", "Details", "Amount", "Dr"})
		require.NoError(t, err)
		assert.Empty(t, cols.Amount)
		assert.Equal(t, "Dr", cols.Debit)
	})
}

func TestFindColumn(t *testing.T) {
	h, ok := FindColumn([]string{"A", "POSTING DATE"}, Aliases(FieldDate))
	assert.True(t, ok)
	assert.Equal(t, "POSTING DATE", h)

	_, ok = FindColumn([]string{"A", "B"}, Aliases(FieldDate))
	assert.False(t, ok)
}

func TestAliasesAreCopied(t *testing.T) {
	aliases := Aliases(FieldDebit)
	aliases[0] = "mutated"

	assert.Equal(t, "debit", Aliases(FieldDebit)[0])
	assert.Nil(t, Aliases(Field("unknown")))
}
