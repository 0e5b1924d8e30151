package statement

import (
	"errors"
	"fmt"
	"strings"
)

// Field is a canonical semantic column.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldBalance     Field = "balance"
)

// amountHeader is the single signed amount column used when neither debit
// nor credit resolves.
const amountHeader = "amount"

// ErrMissingRequiredColumn means the table has no date-like column and
// cannot be parsed as a statement.
var ErrMissingRequiredColumn = errors.New("missing required column")

// MissingColumnError names the mandatory field that was not found.
type MissingColumnError struct {
	Field   Field
	Headers []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q (headers: %s)", e.Field, strings.Join(e.Headers, ", "))
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingRequiredColumn
}

type fieldAliases struct {
	field   Field
	aliases []string
}

// columnAliases is evaluated in order; within a field the first alias
// present in the headers wins.
var columnAliases = []fieldAliases{
	{FieldDate, []string{"date", "txn date", "transaction date", "value date", "posting date"}},
	{FieldDescription, []string{"description", "narration", "details", "particulars", "payee", "desc"}},
	{FieldDebit, []string{"debit", "withdrawal", "spent", "dr", "debits"}},
	{FieldCredit, []string{"credit", "deposit", "received", "cr", "credits"}},
	{FieldBalance, []string{"balance", "available balance", "closing balance"}},
}

// Aliases returns the accepted header names for a field in match order.
func Aliases(field Field) []string {
	for _, fa := range columnAliases {
		if fa.field == field {
			return append([]string(nil), fa.aliases...)
		}
	}
	return nil
}

// ColumnMap holds the real header chosen for each field. Empty means not found.
type ColumnMap struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Balance     string `json:"balance,omitempty"`
	Amount      string `json:"amount,omitempty"`

	// DescriptionFallback is set when Description is the second column of
	// the table rather than a matched alias.
	DescriptionFallback bool `json:"description_fallback,omitempty"`
}

// Get returns the header resolved for field.
func (m ColumnMap) Get(field Field) string {
	switch field {
	case FieldDate:
		return m.Date
	case FieldDescription:
		return m.Description
	case FieldDebit:
		return m.Debit
	case FieldCredit:
		return m.Credit
	case FieldBalance:
		return m.Balance
	}
	return ""
}

func (m *ColumnMap) set(field Field, header string) {
	switch field {
	case FieldDate:
		m.Date = header
	case FieldDescription:
		m.Description = header
	case FieldDebit:
		m.Debit = header
	case FieldCredit:
		m.Credit = header
	case FieldBalance:
		m.Balance = header
	}
}

// FindColumn returns the header matching the first alias found, comparing
// case-insensitively on trimmed text.
func FindColumn(headers []string, aliases []string) (string, bool) {
	index := make(map[string]string, len(headers))
	for _, h := range headers {
		key := NormalizeHeader(h)
		if _, seen := index[key]; !seen {
			index[key] = h
		}
	}
	for _, alias := range aliases {
		if h, ok := index[NormalizeHeader(alias)]; ok {
			return h, true
		}
	}
	return "", false
}

// ResolveColumns maps headers to canonical fields. It fails only when no
// date column exists. A missing description falls back to the header at
// index 1 and sets DescriptionFallback.
func ResolveColumns(headers []string) (ColumnMap, error) {
	var m ColumnMap
	for _, fa := range columnAliases {
		if h, ok := FindColumn(headers, fa.aliases); ok {
			m.set(fa.field, h)
		}
	}

	if m.Date == "" {
		return ColumnMap{}, &MissingColumnError{Field: FieldDate, Headers: headers}
	}

	if m.Description == "" && len(headers) > 1 {
		m.Description = headers[1]
		m.DescriptionFallback = true
	}

	if m.Debit == "" && m.Credit == "" {
		if h, ok := FindColumn(headers, []string{amountHeader}); ok {
			m.Amount = h
		}
	}

	return m, nil
}
