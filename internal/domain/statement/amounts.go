package statement

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/finova/pkg/money"
)

// Amounts is the debit/credit split of one row. Both are non-negative.
type Amounts struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// NormalizeAmounts reads debit and credit for a row.
//
// With a debit or credit column resolved, each cell is read directly and a
// missing or non-numeric cell counts as zero. Otherwise a signed amount
// column is split by sign. With neither, both sides are zero.
func NormalizeAmounts(row RawRow, cols ColumnMap) Amounts {
	if cols.Debit != "" || cols.Credit != "" {
		return Amounts{
			Debit:  cellAmount(row, cols.Debit),
			Credit: cellAmount(row, cols.Credit),
		}
	}

	if cols.Amount != "" {
		v, ok := money.Parse(row[cols.Amount])
		if !ok {
			return Amounts{Debit: decimal.Zero, Credit: decimal.Zero}
		}
		switch v.Sign() {
		case -1:
			return Amounts{Debit: v.Abs(), Credit: decimal.Zero}
		case 1:
			return Amounts{Debit: decimal.Zero, Credit: v}
		}
	}

	return Amounts{Debit: decimal.Zero, Credit: decimal.Zero}
}

// ParseBalance returns nil for a missing column or a non-numeric cell.
func ParseBalance(row RawRow, header string) *decimal.Decimal {
	if header == "" {
		return nil
	}
	v, ok := money.Parse(row[header])
	if !ok {
		return nil
	}
	return &v
}

// cellAmount coerces a debit or credit cell. Banks that print debits with a
// minus sign still yield a non-negative value.
func cellAmount(row RawRow, header string) decimal.Decimal {
	if header == "" {
		return decimal.Zero
	}
	v, ok := money.Parse(row[header])
	if !ok {
		return decimal.Zero
	}
	return v.Abs()
}
