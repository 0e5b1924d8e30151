package statement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSource = Source{BankName: "HDFC Bank", AccountID: "XX1234"}

func TestParse(t *testing.T) {
	t.Run("end to end debit and credit", func(t *testing.T) {
		table := Table{
			Headers: []string{"date", "description", "debit", "credit"},
			Rows: []RawRow{
				{"date": "1-Apr-15", "description": "Rent Payment", "debit": "15000", "credit": ""},
				{"date": "2-Apr-15", "description": "Salary Credit", "debit": "", "credit": "50000"},
			},
		}

		st, err := Parse(table, testSource)

		require.NoError(t, err)
		require.Len(t, st.Transactions, 2)
		assert.Empty(t, st.Warnings)

		rent := st.Transactions[0]
		assert.Equal(t, "2015-04-01", rent.Date)
		assert.Equal(t, "Rent Payment", rent.Description)
		assert.Equal(t, "15000", rent.Debit.String())
		assert.True(t, rent.Credit.IsZero())
		assert.Nil(t, rent.Balance)
		assert.Equal(t, "HDFC Bank", rent.BankName)
		assert.Equal(t, "XX1234", rent.AccountID)
		assert.Empty(t, rent.Category)

		salary := st.Transactions[1]
		assert.Equal(t, "2015-04-02", salary.Date)
		assert.Equal(t, "50000", salary.Credit.String())
		assert.True(t, salary.Debit.IsZero())
	})

	t.Run("signed amount column", func(t *testing.T) {
		table := Table{
			Headers: []string{"Posting Date", "Payee", "Amount", "Balance"},
			Rows: []RawRow{
				{"Posting Date": "2024-03-01", "Payee": "Shop", "Amount": "-500", "Balance": "9500"},
				{"Posting Date": "2024-03-02", "Payee": "Refund", "Amount": "250", "Balance": ""},
			},
		}

		st, err := Parse(table, testSource)

		require.NoError(t, err)
		assert.Equal(t, "500", st.Transactions[0].Debit.String())
		assert.True(t, st.Transactions[0].Credit.IsZero())
		require.NotNil(t, st.Transactions[0].Balance)
		assert.Equal(t, "9500", st.Transactions[0].Balance.String())

		assert.True(t, st.Transactions[1].Debit.IsZero())
		assert.Equal(t, "250", st.Transactions[1].Credit.String())
		assert.Nil(t, st.Transactions[1].Balance)
	})

	t.Run("missing date column yields no partial result", func(t *testing.T) {
		st, err := Parse(Table{Headers: []string{"Narration", "Amount"}}, testSource)

		assert.Nil(t, st)
		assert.True(t, errors.Is(err, ErrMissingRequiredColumn))
	})

	t.Run("warnings for heuristics", func(t *testing.T) {
		table := Table{
			Headers: []string{"Date", "Memo", "Reference"},
			Rows: []RawRow{
				{"Date": "someday", "Memo": "Cash", "Reference": "1"},
			},
		}

		st, err := Parse(table, testSource)

		require.NoError(t, err)
		assert.Len(t, st.Warnings, 3)
		assert.True(t, st.Columns.DescriptionFallback)
		assert.Equal(t, "someday", st.Transactions[0].Date)
		assert.Equal(t, "Cash", st.Transactions[0].Description)
	})

	t.Run("empty table", func(t *testing.T) {
		st, err := Parse(Table{Headers: []string{"Date", "Description"}}, testSource)

		require.NoError(t, err)
		assert.NotNil(t, st.Transactions)
		assert.Empty(t, st.Transactions)
	})
}

func TestBuildTransaction_DoesNotMutateRow(t *testing.T) {
	row := RawRow{"Date": " 2024-01-15 ", "Description": "  Coffee  ", "Debit": "4.50"}
	cols := ColumnMap{Date: "Date", Description: "Description", Debit: "Debit"}

	tx := BuildTransaction(row, cols, testSource)

	assert.Equal(t, "2024-01-15", tx.Date)
	assert.Equal(t, "Coffee", tx.Description)
	assert.Equal(t, " 2024-01-15 ", row["Date"])
}

func TestTransactionJSON(t *testing.T) {
	tx := BuildTransaction(
		RawRow{"Date": "1-Apr-15", "Desc": "Rent", "Debit": "15000"},
		ColumnMap{Date: "Date", Description: "Desc", Debit: "Debit"},
		testSource,
	)

	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"date": "2015-04-01",
		"description": "Rent",
		"debit": 15000,
		"credit": 0,
		"bank_name": "HDFC Bank",
		"account_id": "XX1234"
	}`, string(data))

	categorized := tx.WithCategory("Rent")
	assert.Equal(t, "Rent", categorized.Category)
	assert.Empty(t, tx.Category)
}
