package parser

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// ExportRow is the CSV shape of a categorized transaction.
type ExportRow struct {
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Debit       string `csv:"debit"`
	Credit      string `csv:"credit"`
	Balance     string `csv:"balance"`
	Category    string `csv:"category"`
	BankName    string `csv:"bank_name"`
	AccountID   string `csv:"account_id"`
}

// ToExportRows flattens transactions for CSV output. A missing balance is
// an empty cell.
func ToExportRows(txs []statement.Transaction) []ExportRow {
	rows := make([]ExportRow, len(txs))
	for i, tx := range txs {
		rows[i] = ExportRow{
			Date:        tx.Date,
			Description: tx.Description,
			Debit:       tx.Debit.StringFixed(2),
			Credit:      tx.Credit.StringFixed(2),
			Category:    tx.Category,
			BankName:    tx.BankName,
			AccountID:   tx.AccountID,
		}
		if tx.Balance != nil {
			rows[i].Balance = tx.Balance.StringFixed(2)
		}
	}
	return rows
}

// WriteCSV writes transactions with a header row.
func WriteCSV(w io.Writer, txs []statement.Transaction) error {
	rows := ToExportRows(txs)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
