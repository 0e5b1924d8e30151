package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// DBTX is the subset of pgxpool.Pool the store needs. pgxmock pools
// satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

var transactionColumns = []string{"date", "description", "debit", "credit", "balance", "bank_name", "account_id"}

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a store over a pool or any DBTX.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert bulk-loads txs with COPY.
func (s *PostgresStore) Insert(ctx context.Context, txs []statement.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, ErrEmptyBatch
	}

	rows := make([][]any, len(txs))
	for i, tx := range txs {
		rows[i] = []any{
			tx.Date,
			tx.Description,
			toNumeric(tx.Debit),
			toNumeric(tx.Credit),
			toNullableNumeric(tx.Balance),
			tx.BankName,
			tx.AccountID,
		}
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"transactions"}, transactionColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to insert transactions: %w", err)
	}
	return int(n), nil
}

// List returns transactions in insertion order.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]statement.Transaction, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := []statement.Transaction{}
	for rows.Next() {
		var (
			tx                     statement.Transaction
			debit, credit, balance pgtype.Numeric
		)
		if err := rows.Scan(&tx.Date, &tx.Description, &debit, &credit, &balance, &tx.BankName, &tx.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Debit = fromNumeric(debit)
		tx.Credit = fromNumeric(credit)
		tx.Balance = fromNullableNumeric(balance)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func buildListQuery(filter ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.BankName != "" {
		args = append(args, filter.BankName)
		where = append(where, fmt.Sprintf("bank_name = $%d", len(args)))
	}
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		where = append(where, fmt.Sprintf("account_id = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT date, description, debit, credit, balance, bank_name, account_id FROM transactions")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func (s *PostgresStore) RecordUpload(ctx context.Context, upload Upload) error {
	query := `
		INSERT INTO statement_uploads (id, filename, uploaded_at, transaction_count, bank_name, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.Exec(ctx, query,
		upload.ID, upload.Filename, upload.UploadedAt, upload.TransactionCount, upload.BankName, upload.AccountID,
	)
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	return nil
}

// ListUploads returns the newest uploads first.
func (s *PostgresStore) ListUploads(ctx context.Context, limit int) ([]Upload, error) {
	query := `
		SELECT id, filename, uploaded_at, transaction_count, bank_name, account_id
		FROM statement_uploads
		ORDER BY uploaded_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	out := []Upload{}
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.ID, &u.Filename, &u.UploadedAt, &u.TransactionCount, &u.BankName, &u.AccountID); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate uploads: %w", err)
	}
	return out, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func toNullableNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return toNumeric(*d)
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func fromNullableNumeric(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return nil
	}
	d := decimal.NewFromBigInt(n.Int, n.Exp)
	return &d
}
