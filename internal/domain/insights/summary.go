// Package insights computes summaries and chart series from canonical
// transactions.
package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/finova/internal/domain/categorization"
	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// TopCategoryLimit caps SummaryReport.TopCategories.
const TopCategoryLimit = 5

// TransactionRef identifies an extreme transaction in a report. Date is ""
// when the transaction's date did not parse.
type TransactionRef struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

// CategoryAmount is the summed debit for one category.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// MonthlyBucket holds the flows of one calendar month.
type MonthlyBucket struct {
	YearMonth   string          `json:"year_month"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	Net         decimal.Decimal `json:"net"`
}

// SummaryReport is the aggregate view of a transaction set.
type SummaryReport struct {
	TotalCredits     decimal.Decimal  `json:"total_credits"`
	TotalDebits      decimal.Decimal  `json:"total_debits"`
	NetCashflow      decimal.Decimal  `json:"net_cashflow"`
	HighestDebit     *TransactionRef  `json:"highest_debit"`
	HighestCredit    *TransactionRef  `json:"highest_credit"`
	TopCategories    []CategoryAmount `json:"top_categories"`
	MonthlyCashflow  []MonthlyBucket  `json:"monthly_cashflow"`
	TransactionCount int              `json:"transaction_count"`
}

// Summarize aggregates already-categorized transactions. It is pure and
// deterministic: ties resolve by input order. Transactions without a
// category count as Other.
func Summarize(txs []statement.Transaction) SummaryReport {
	report := SummaryReport{
		TotalCredits:     decimal.Zero,
		TotalDebits:      decimal.Zero,
		NetCashflow:      decimal.Zero,
		TopCategories:    []CategoryAmount{},
		MonthlyCashflow:  []MonthlyBucket{},
		TransactionCount: len(txs),
	}

	var highestDebit, highestCredit *statement.Transaction
	for i := range txs {
		tx := &txs[i]
		report.TotalCredits = report.TotalCredits.Add(tx.Credit)
		report.TotalDebits = report.TotalDebits.Add(tx.Debit)

		if tx.Debit.IsPositive() && (highestDebit == nil || tx.Debit.GreaterThan(highestDebit.Debit)) {
			highestDebit = tx
		}
		if tx.Credit.IsPositive() && (highestCredit == nil || tx.Credit.GreaterThan(highestCredit.Credit)) {
			highestCredit = tx
		}
	}
	report.NetCashflow = report.TotalCredits.Sub(report.TotalDebits)

	if highestDebit != nil {
		report.HighestDebit = newRef(*highestDebit, highestDebit.Debit)
	}
	if highestCredit != nil {
		report.HighestCredit = newRef(*highestCredit, highestCredit.Credit)
	}

	report.TopCategories = topCategories(CategorySpend(txs), TopCategoryLimit)
	report.MonthlyCashflow = MonthlyCashflow(txs)

	return report
}

func newRef(tx statement.Transaction, amount decimal.Decimal) *TransactionRef {
	date := ""
	if parsed := statement.ParseDate(tx.Date); parsed.Parsed {
		date = parsed.String()
	}
	return &TransactionRef{Description: tx.Description, Amount: amount, Date: date}
}

// CategorySpend sums debits per category for every category with spend,
// sorted by amount descending. Equal sums keep first-seen order.
func CategorySpend(txs []statement.Transaction) []CategoryAmount {
	index := make(map[string]int)
	spend := []CategoryAmount{}

	for _, tx := range txs {
		if !tx.Debit.IsPositive() {
			continue
		}
		category := tx.Category
		if category == "" {
			category = categorization.Other
		}
		if i, ok := index[category]; ok {
			spend[i].Amount = spend[i].Amount.Add(tx.Debit)
			continue
		}
		index[category] = len(spend)
		spend = append(spend, CategoryAmount{Category: category, Amount: tx.Debit})
	}

	sort.SliceStable(spend, func(i, j int) bool {
		return spend[i].Amount.GreaterThan(spend[j].Amount)
	})
	return spend
}

func topCategories(spend []CategoryAmount, limit int) []CategoryAmount {
	if len(spend) > limit {
		spend = spend[:limit]
	}
	return spend
}

// MonthlyCashflow groups transactions with a parseable date by year-month,
// in chronological order. Rows whose date kept its raw text are skipped.
func MonthlyCashflow(txs []statement.Transaction) []MonthlyBucket {
	index := make(map[string]int)
	buckets := []MonthlyBucket{}

	for _, tx := range txs {
		key := statement.ParseDate(tx.Date).YearMonth()
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, MonthlyBucket{
				YearMonth:   key,
				TotalCredit: decimal.Zero,
				TotalDebit:  decimal.Zero,
			})
		}
		buckets[i].TotalCredit = buckets[i].TotalCredit.Add(tx.Credit)
		buckets[i].TotalDebit = buckets[i].TotalDebit.Add(tx.Debit)
	}

	for i := range buckets {
		buckets[i].Net = buckets[i].TotalCredit.Sub(buckets[i].TotalDebit)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].YearMonth < buckets[j].YearMonth
	})
	return buckets
}
