package insights

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

func withBalance(tx statement.Transaction, balance string) statement.Transaction {
	b := decimal.RequireFromString(balance)
	tx.Balance = &b
	return tx
}

func TestBalanceTrend(t *testing.T) {
	txs := []statement.Transaction{
		withBalance(debit("2024-02-01", "b", "Other", "10"), "90"),
		withBalance(credit("2024-01-01", "a", "Income", "100"), "100"),
		debit("2024-02-02", "no balance", "Other", "5"),
		withBalance(debit("garbled", "c", "Other", "1"), "89"),
		withBalance(debit("2024-02-01", "d", "Other", "10"), "80"),
	}

	points := BalanceTrend(txs)

	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-01", points[0].Date)
	assert.Equal(t, "90", points[1].Balance.String())
	assert.Equal(t, "80", points[2].Balance.String())
}

func TestCharts(t *testing.T) {
	txs := []statement.Transaction{
		debit("2024-01-01", "a", "Groceries", "10"),
		debit("2024-01-01", "b", "Rent", "100"),
		debit("2024-02-01", "c", "Groceries", "20"),
		debit("2024-02-01", "d", "Dining", "1"),
		debit("2024-02-01", "e", "Shopping", "2"),
		debit("2024-02-01", "f", "Transport", "3"),
		debit("2024-02-01", "g", "Utilities", "4"),
	}

	charts := Charts(txs)

	assert.Len(t, charts.CategorySpend, 6)
	assert.Equal(t, "Rent", charts.CategorySpend[0].Category)
	assert.Empty(t, charts.BalanceTrend)
	assert.Len(t, charts.MonthlyCashflow, 2)
}

func TestMonthlySpend(t *testing.T) {
	txs := []statement.Transaction{
		debit("2024-01-03", "a", "Groceries", "10"),
		debit("2024-01-09", "b", "Rent", "100"),
		debit("2024-02-01", "c", "Groceries", "20"),
	}

	groceries := MonthlySpend(txs, "Groceries")
	require.Len(t, groceries, 2)
	assert.Equal(t, "10", groceries[0].Amount.String())
	assert.Equal(t, "2024-02", groceries[1].YearMonth)

	all := MonthlySpend(txs, "")
	assert.Equal(t, "110", all[0].Amount.String())

	assert.Empty(t, MonthlySpend(txs, "Dining"))
}
