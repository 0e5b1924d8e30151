// Package statement turns loosely structured bank-statement tables into
// canonical transactions.
package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RawRow is one record of the unparsed input table keyed by original header text.
type RawRow map[string]string

// Table is a tabular statement as read from a file. Headers keep file order
// and are unique under case-insensitive, trimmed comparison.
type Table struct {
	Headers []string
	Rows    []RawRow
}

// Source carries provenance that is stamped on every transaction of a parse.
type Source struct {
	BankName  string `json:"bank_name"`
	AccountID string `json:"account_id"`
}

// Transaction is the normalized, bank-agnostic record used downstream.
// Date is ISO-8601 when it parsed, otherwise the raw cell text.
type Transaction struct {
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Debit       decimal.Decimal  `json:"debit"`
	Credit      decimal.Decimal  `json:"credit"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	BankName    string           `json:"bank_name"`
	AccountID   string           `json:"account_id"`
	Category    string           `json:"category,omitempty"`
}

// IsDebit reports whether money left the account.
func (t Transaction) IsDebit() bool {
	return t.Debit.IsPositive()
}

// IsCredit reports whether money entered the account.
func (t Transaction) IsCredit() bool {
	return t.Credit.IsPositive()
}

// WithCategory returns a copy tagged with category.
func (t Transaction) WithCategory(category string) Transaction {
	t.Category = category
	return t
}

// Statement is the result of parsing one table.
type Statement struct {
	Source       Source        `json:"source"`
	Columns      ColumnMap     `json:"columns"`
	Transactions []Transaction `json:"transactions"`
	Warnings     []string      `json:"warnings,omitempty"`
}

// NormalizeHeader is the comparison key used for header matching.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
