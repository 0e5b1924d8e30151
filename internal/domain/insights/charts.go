package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// BalancePoint is one sample of the running balance.
type BalancePoint struct {
	Date    string          `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}

// MonthlyAmount is a single-valued monthly series point.
type MonthlyAmount struct {
	YearMonth string          `json:"year_month"`
	Amount    decimal.Decimal `json:"amount"`
}

// ChartData holds the series a dashboard needs to draw the category pie,
// the balance line and the monthly cashflow bars.
type ChartData struct {
	CategorySpend   []CategoryAmount `json:"category_spend"`
	BalanceTrend    []BalancePoint   `json:"balance_trend"`
	MonthlyCashflow []MonthlyBucket  `json:"monthly_cashflow"`
}

// Charts builds chart-ready series from categorized transactions.
func Charts(txs []statement.Transaction) ChartData {
	return ChartData{
		CategorySpend:   CategorySpend(txs),
		BalanceTrend:    BalanceTrend(txs),
		MonthlyCashflow: MonthlyCashflow(txs),
	}
}

// BalanceTrend returns balances of rows with a parseable date, ordered by
// date. Rows on the same day keep statement order.
func BalanceTrend(txs []statement.Transaction) []BalancePoint {
	points := []BalancePoint{}
	for _, tx := range txs {
		if tx.Balance == nil {
			continue
		}
		date := statement.ParseDate(tx.Date)
		if !date.Parsed {
			continue
		}
		points = append(points, BalancePoint{Date: date.String(), Balance: *tx.Balance})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}

// MonthlySpend sums debits per month, optionally restricted to one
// category. An empty category means all spend.
func MonthlySpend(txs []statement.Transaction, category string) []MonthlyAmount {
	series := []MonthlyAmount{}
	for _, bucket := range MonthlyCashflow(filterCategory(txs, category)) {
		series = append(series, MonthlyAmount{YearMonth: bucket.YearMonth, Amount: bucket.TotalDebit})
	}
	return series
}

func filterCategory(txs []statement.Transaction, category string) []statement.Transaction {
	if category == "" {
		return txs
	}
	out := make([]statement.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Category == category {
			out = append(out, tx)
		}
	}
	return out
}
