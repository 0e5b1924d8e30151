package repository

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finova/internal/domain/statement"
)

func sampleTransactions() []statement.Transaction {
	balance := decimal.RequireFromString("35000.50")
	return []statement.Transaction{
		{Date: "2015-04-01", Description: "Rent Payment", Debit: decimal.NewFromInt(15000), Credit: decimal.Zero, BankName: "HDFC Bank", AccountID: "A1"},
		{Date: "2015-04-02", Description: "Salary Credit", Debit: decimal.Zero, Credit: decimal.NewFromInt(50000), Balance: &balance, BankName: "HDFC Bank", AccountID: "A1", Category: "Income"},
		{Date: "31/02/2015", Description: "Coffee", Debit: decimal.RequireFromString("4.50"), Credit: decimal.Zero, BankName: "ICICI Bank", AccountID: "B2"},
	}
}

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("empty insert is rejected", func(t *testing.T) {
		s := newStore(t)
		n, err := s.Insert(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
		assert.Zero(t, n)
	})

	t.Run("insert then list keeps order and values", func(t *testing.T) {
		s := newStore(t)
		n, err := s.Insert(ctx, sampleTransactions())
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		got, err := s.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, got, 3)

		assert.Equal(t, "Rent Payment", got[0].Description)
		assert.True(t, got[0].Debit.Equal(decimal.NewFromInt(15000)))
		assert.Nil(t, got[0].Balance)
		require.NotNil(t, got[1].Balance)
		assert.True(t, got[1].Balance.Equal(decimal.RequireFromString("35000.5")))
		assert.Empty(t, got[1].Category)
		assert.Equal(t, "31/02/2015", got[2].Date)
		assert.True(t, got[2].Debit.Equal(decimal.RequireFromString("4.5")))
	})

	t.Run("list filters and limits", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, sampleTransactions())
		require.NoError(t, err)
		_, err = s.Insert(ctx, sampleTransactions())
		require.NoError(t, err)

		got, err := s.List(ctx, ListFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.List(ctx, ListFilter{BankName: "ICICI Bank"})
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.List(ctx, ListFilter{BankName: "HDFC Bank", AccountID: "A1", Limit: 3})
		require.NoError(t, err)
		assert.Len(t, got, 3)

		got, err = s.List(ctx, ListFilter{AccountID: "nope"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("uploads newest first", func(t *testing.T) {
		s := newStore(t)
		base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		first := Upload{ID: uuid.New(), Filename: "march.csv", UploadedAt: base, TransactionCount: 10, BankName: "HDFC Bank", AccountID: "A1"}
		second := Upload{ID: uuid.New(), Filename: "april.csv", UploadedAt: base.Add(time.Hour), TransactionCount: 3, BankName: "HDFC Bank", AccountID: "A1"}
		require.NoError(t, s.RecordUpload(ctx, first))
		require.NoError(t, s.RecordUpload(ctx, second))

		got, err := s.ListUploads(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, second.ID, got[0].ID)
		assert.Equal(t, "april.csv", got[0].Filename)
		assert.True(t, second.UploadedAt.Equal(got[0].UploadedAt))
		assert.Equal(t, 10, got[1].TransactionCount)

		got, err = s.ListUploads(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_CopiesInput(t *testing.T) {
	s := NewMemoryStore()
	txs := sampleTransactions()
	_, err := s.Insert(context.Background(), txs)
	require.NoError(t, err)

	*txs[1].Balance = decimal.NewFromInt(1)
	txs[0].Description = "changed"

	got, err := s.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Rent Payment", got[0].Description)
	assert.True(t, got[1].Balance.Equal(decimal.RequireFromString("35000.5")))
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestParseListFilter(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		f, err := ParseListFilter(url.Values{"limit": {"5"}, "bank_name": {"HDFC"}, "account_id": {"A1"}})
		require.NoError(t, err)
		assert.Equal(t, ListFilter{Limit: 5, BankName: "HDFC", AccountID: "A1"}, f)
	})

	t.Run("empty", func(t *testing.T) {
		f, err := ParseListFilter(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, ListFilter{}, f)
	})

	for _, bad := range []string{"x", "-1"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseListFilter(url.Values{"limit": {bad}})
			assert.Error(t, err)
		})
	}
}
