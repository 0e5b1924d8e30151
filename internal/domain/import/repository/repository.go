// Package repository persists canonical transactions and statement upload
// records. Stores are append-only: there is no update, delete or dedup.
package repository

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// ErrEmptyBatch is returned when Insert receives no transactions.
var ErrEmptyBatch = errors.New("no transactions to insert")

// Upload records one ingested statement file.
type Upload struct {
	ID               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	UploadedAt       time.Time `json:"uploaded_at"`
	TransactionCount int       `json:"transaction_count"`
	BankName         string    `json:"bank_name"`
	AccountID        string    `json:"account_id"`
}

// ListFilter narrows List. Zero values match everything; Limit <= 0 means
// no limit. Results come back in insertion order.
type ListFilter struct {
	Limit     int
	BankName  string
	AccountID string
}

// ParseListFilter reads limit, bank_name and account_id query parameters.
func ParseListFilter(q url.Values) (ListFilter, error) {
	filter := ListFilter{BankName: q.Get("bank_name"), AccountID: q.Get("account_id")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (f ListFilter) matches(tx statement.Transaction) bool {
	if f.BankName != "" && tx.BankName != f.BankName {
		return false
	}
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	return true
}

// Store is the transaction storage collaborator. Insert and RecordUpload
// are independent writes.
type Store interface {
	Insert(ctx context.Context, txs []statement.Transaction) (int, error)
	List(ctx context.Context, filter ListFilter) ([]statement.Transaction, error)
	RecordUpload(ctx context.Context, upload Upload) error
	ListUploads(ctx context.Context, limit int) ([]Upload, error)
	Close() error
}
