package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	date        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	debit       TEXT NOT NULL DEFAULT '0',
	credit      TEXT NOT NULL DEFAULT '0',
	balance     TEXT,
	bank_name   TEXT NOT NULL DEFAULT '',
	account_id  TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_transactions_source ON transactions (bank_name, account_id);
CREATE TABLE IF NOT EXISTS statement_uploads (
	id                TEXT PRIMARY KEY,
	filename          TEXT NOT NULL,
	uploaded_at       TEXT NOT NULL,
	transaction_count INTEGER NOT NULL,
	bank_name         TEXT NOT NULL DEFAULT '',
	account_id        TEXT NOT NULL DEFAULT ''
);
`

// sqliteTimeLayout sorts lexicographically in time order for UTC values.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists transactions in a single SQLite file. Amounts are
// stored as decimal text so no precision is lost.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer; also keeps a ":memory:" database on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, txs []statement.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, ErrEmptyBatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (date, description, debit, credit, balance, bank_name, account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		var balance sql.NullString
		if t.Balance != nil {
			balance = sql.NullString{String: t.Balance.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, t.Date, t.Description, t.Debit.String(), t.Credit.String(),
			balance, t.BankName, t.AccountID); err != nil {
			return 0, fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}
	return len(txs), nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]statement.Transaction, error) {
	query := `SELECT date, description, debit, credit, balance, bank_name, account_id FROM transactions
		WHERE (? = '' OR bank_name = ?) AND (? = '' OR account_id = ?)
		ORDER BY id`
	args := []any{filter.BankName, filter.BankName, filter.AccountID, filter.AccountID}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := []statement.Transaction{}
	for rows.Next() {
		var (
			t             statement.Transaction
			debit, credit string
			balance       decimal.NullDecimal
		)
		if err := rows.Scan(&t.Date, &t.Description, &debit, &credit, &balance, &t.BankName, &t.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Debit, err = decimal.NewFromString(debit); err != nil {
			return nil, fmt.Errorf("invalid debit %q: %w", debit, err)
		}
		if t.Credit, err = decimal.NewFromString(credit); err != nil {
			return nil, fmt.Errorf("invalid credit %q: %w", credit, err)
		}
		if balance.Valid {
			b := balance.Decimal
			t.Balance = &b
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) RecordUpload(ctx context.Context, upload Upload) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statement_uploads (id, filename, uploaded_at, transaction_count, bank_name, account_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		upload.ID.String(), upload.Filename, upload.UploadedAt.UTC().Format(sqliteTimeLayout),
		upload.TransactionCount, upload.BankName, upload.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

// ListUploads returns the newest uploads first.
func (s *SQLiteStore) ListUploads(ctx context.Context, limit int) ([]Upload, error) {
	query := `SELECT id, filename, uploaded_at, transaction_count, bank_name, account_id
		FROM statement_uploads ORDER BY uploaded_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	out := []Upload{}
	for rows.Next() {
		var (
			u         Upload
			id, stamp string
		)
		if err := rows.Scan(&id, &u.Filename, &stamp, &u.TransactionCount, &u.BankName, &u.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		if u.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid upload id %q: %w", id, err)
		}
		if u.UploadedAt, err = time.Parse(sqliteTimeLayout, stamp); err != nil {
			return nil, fmt.Errorf("invalid upload time %q: %w", stamp, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate uploads: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
