package repository

import (
	"context"
	"sync"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	txs     []statement.Transaction
	uploads []Upload
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, txs []statement.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, ErrEmptyBatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range txs {
		tx.Category = ""
		if tx.Balance != nil {
			b := *tx.Balance
			tx.Balance = &b
		}
		s.txs = append(s.txs, tx)
	}
	return len(txs), nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]statement.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []statement.Transaction{}
	for _, tx := range s.txs {
		if !filter.matches(tx) {
			continue
		}
		out = append(out, tx)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordUpload(_ context.Context, upload Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, upload)
	return nil
}

// ListUploads returns the newest uploads first.
func (s *MemoryStore) ListUploads(_ context.Context, limit int) ([]Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Upload{}
	for i := len(s.uploads) - 1; i >= 0; i-- {
		out = append(out, s.uploads[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
