package statement

import (
	"fmt"
	"strings"
)

// BuildTransaction maps one raw row to a canonical transaction. It never
// fails: malformed cells fall back to their defaults.
func BuildTransaction(row RawRow, cols ColumnMap, src Source) Transaction {
	return buildTransaction(row, cols, src, ParseDate(row[cols.Date]))
}

func buildTransaction(row RawRow, cols ColumnMap, src Source, date DateResult) Transaction {
	amounts := NormalizeAmounts(row, cols)

	var description string
	if cols.Description != "" {
		description = strings.TrimSpace(row[cols.Description])
	}

	return Transaction{
		Date:        date.String(),
		Description: description,
		Debit:       amounts.Debit,
		Credit:      amounts.Credit,
		Balance:     ParseBalance(row, cols.Balance),
		BankName:    src.BankName,
		AccountID:   src.AccountID,
	}
}

// Parse resolves the columns of a table and builds every row. The only
// error is a missing date column, which yields no partial result.
func Parse(table Table, src Source) (*Statement, error) {
	cols, err := ResolveColumns(table.Headers)
	if err != nil {
		return nil, err
	}

	st := &Statement{
		Source:       src,
		Columns:      cols,
		Transactions: make([]Transaction, 0, len(table.Rows)),
	}

	if cols.DescriptionFallback {
		st.Warnings = append(st.Warnings,
			fmt.Sprintf("no description column matched; using %q", cols.Description))
	}
	if cols.Debit == "" && cols.Credit == "" && cols.Amount == "" {
		st.Warnings = append(st.Warnings, "no debit, credit or amount column; amounts default to 0")
	}

	unparsedDates := 0
	for _, row := range table.Rows {
		date := ParseDate(row[cols.Date])
		if !date.Parsed {
			unparsedDates++
		}
		st.Transactions = append(st.Transactions, buildTransaction(row, cols, src, date))
	}
	if unparsedDates > 0 {
		st.Warnings = append(st.Warnings,
			fmt.Sprintf("%d row(s) kept their original date text", unparsedDates))
	}

	return st, nil
}
