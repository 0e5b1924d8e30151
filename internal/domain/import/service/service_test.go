package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	"github.com/FACorreiaa/finova/internal/domain/categorization"
	"github.com/FACorreiaa/finova/internal/domain/import/parser"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	"github.com/FACorreiaa/finova/internal/domain/statement"
	"github.com/FACorreiaa/finova/pkg/metrics"
	"github.com/FACorreiaa/finova/pkg/notify"
	"github.com/FACorreiaa/finova/pkg/storage"
)

const hdfcCSV = `HDFC Bank Ltd
Statement for account 50100
Date,Narration,Withdrawal,Deposit,Closing Balance
01/04/2024,Monthly Rent Payment,15000,,35000
02/04/2024,Salary credit,,50000,85000
03/04/2024,Big Bazaar grocery,2000,,83000
`

type recordingNotifier struct {
	summaries []notify.IngestSummary
	err       error
}

func (r *recordingNotifier) NotifyIngest(_ context.Context, s notify.IngestSummary) error {
	r.summaries = append(r.summaries, s)
	return r.err
}

type recordingIndex struct {
	added []statement.Transaction
}

func (r *recordingIndex) Add(txs []statement.Transaction) error {
	r.added = append(r.added, txs...)
	return nil
}

type countingCache struct{ n int }

func (c *countingCache) Invalidate() { c.n++ }

type stubBanks struct {
	info assistant.StatementInfo
	seen []assistant.EmailMeta
}

func (s *stubBanks) Classify(_ context.Context, meta assistant.EmailMeta) assistant.StatementInfo {
	s.seen = append(s.seen, meta)
	return s.info
}

type failingStore struct {
	repository.Store
}

func (failingStore) Insert(context.Context, []statement.Transaction) (int, error) {
	return 0, errors.New("disk full")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	index := &recordingIndex{}
	cache := &countingCache{}
	m := metrics.New()

	svc := NewImportService(store, categorization.NewDefaultClassifier(), discardLogger()).
		WithArchive(archive).
		WithNotifier(notifier).
		WithIndex(index).
		WithCache(cache).
		WithMetrics(m)
	fixed := time.Date(2024, 4, 5, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	result, err := svc.Ingest(ctx, IngestRequest{
		Filename:  "apr.csv",
		Content:   []byte(hdfcCSV),
		BankName:  "HDFC Bank",
		AccountID: "50100",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.TransactionCount)
	assert.Equal(t, parser.FormatCSV, result.Format)
	assert.Equal(t, "Narration", result.Columns.Description)
	assert.Equal(t, "Closing Balance", result.Columns.Balance)
	assert.NotEmpty(t, result.ArchivePath)
	assert.NotEmpty(t, result.ArchiveID)

	txs, err := store.List(ctx, repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, "2024-04-01", txs[0].Date)
	assert.Equal(t, "HDFC Bank", txs[0].BankName)
	assert.Equal(t, "", txs[0].Category, "categories are derived, not stored")

	uploads, err := svc.Uploads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, result.UploadID, uploads[0].ID)
	assert.Equal(t, fixed, uploads[0].UploadedAt)
	assert.Equal(t, 3, uploads[0].TransactionCount)

	assert.Equal(t, 1, cache.n)
	require.Len(t, index.added, 3)
	assert.Equal(t, categorization.Rent, index.added[0].Category)

	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, "17000", notifier.summaries[0].TotalDebits.String())
	assert.Equal(t, "50000", notifier.summaries[0].TotalCredits.String())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatementsIngested.WithLabelValues("csv")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.TransactionsIngested))

	files, err := archive.List(ctx, "HDFC Bank")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestIngest_BankDetection(t *testing.T) {
	ctx := context.Background()

	t.Run("detected", func(t *testing.T) {
		banks := &stubBanks{info: assistant.StatementInfo{BankName: "ICICI Bank", Confidence: 0.9}}
		svc := NewImportService(repository.NewMemoryStore(), categorization.NewDefaultClassifier(), discardLogger()).
			WithBankClassifier(banks).
			WithDefaults("Default Bank", "ACC-1")

		result, err := svc.Ingest(ctx, IngestRequest{
			Filename: "icici.csv",
			Content:  []byte("Date,Description,Amount\n2024-01-01,Cafe,-100\n"),
			Meta:     &assistant.EmailMeta{Subject: "ICICI statement"},
		})
		require.NoError(t, err)
		assert.Equal(t, "ICICI Bank", result.BankName)
		assert.Equal(t, "ACC-1", result.AccountID)
		require.Len(t, banks.seen, 1)
		assert.Equal(t, "icici.csv", banks.seen[0].Filename)
		assert.Equal(t, "ICICI statement", banks.seen[0].Subject)
	})

	t.Run("unknown falls back to default", func(t *testing.T) {
		banks := &stubBanks{info: assistant.StatementInfo{BankName: assistant.Unknown}}
		svc := NewImportService(repository.NewMemoryStore(), categorization.NewDefaultClassifier(), discardLogger()).
			WithBankClassifier(banks).
			WithDefaults("Default Bank", "")

		result, err := svc.Ingest(ctx, IngestRequest{
			Filename: "x.csv",
			Content:  []byte("Date,Description,Amount\n2024-01-01,Cafe,-100\n"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Default Bank", result.BankName)
	})
}

func TestIngest_Failures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		filename string
		content  string
		reason   string
		sentinel error
	}{
		{"empty", "a.csv", "", "empty_file", ErrEmptyContent},
		{"unsupported", "a.docx", "hello", "unsupported_format", parser.ErrUnsupportedFormat},
		{"pdf", "a.pdf", "%PDF", "unsupported_format", parser.ErrPDFNotSupported},
		{"no date column", "a.csv", "Description,Amount\nCafe,10\n", "unrecognized_layout", statement.ErrMissingRequiredColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			store := repository.NewMemoryStore()
			svc := NewImportService(store, categorization.NewDefaultClassifier(), discardLogger()).WithMetrics(m)

			_, err := svc.Ingest(ctx, IngestRequest{Filename: tt.filename, Content: []byte(tt.content)})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.True(t, IsFormatError(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestFailures.WithLabelValues(tt.reason)))

			uploads, err := store.ListUploads(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, uploads)
		})
	}

	t.Run("store error", func(t *testing.T) {
		svc := NewImportService(failingStore{repository.NewMemoryStore()}, categorization.NewDefaultClassifier(), discardLogger())
		_, err := svc.Ingest(ctx, IngestRequest{Filename: "a.csv", Content: []byte("Date,Amount\n2024-01-01,5\n")})
		require.Error(t, err)
		assert.False(t, IsFormatError(err))
		assert.Equal(t, "internal", FailureReason(err))
	})
}

func TestIngest_HeaderOnly(t *testing.T) {
	store := repository.NewMemoryStore()
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	svc := NewImportService(store, categorization.NewDefaultClassifier(), discardLogger()).WithNotifier(notifier)

	result, err := svc.Ingest(context.Background(), IngestRequest{Filename: "a.csv", Content: []byte("Date,Description,Debit,Credit\n")})
	require.NoError(t, err, "notification failures do not fail ingestion")
	assert.Zero(t, result.TransactionCount)
	assert.Contains(t, result.Warnings, "no transactions found")

	uploads, err := store.ListUploads(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
}

func TestAnalyze(t *testing.T) {
	svc := NewImportService(repository.NewMemoryStore(), categorization.NewDefaultClassifier(), discardLogger())

	result, err := svc.Analyze(context.Background(), "apr.csv", []byte(hdfcCSV))
	require.NoError(t, err)
	assert.Equal(t, ",", result.Delimiter)
	assert.Equal(t, 2, result.SkipLines)
	assert.Equal(t, 3, result.RowCount)
	assert.Len(t, result.SampleRows, 3)
	assert.Equal(t, "Withdrawal", result.Columns.Debit)
	assert.NotEmpty(t, result.Fingerprint)

	_, err = svc.Analyze(context.Background(), "a.csv", []byte("Narration,Amount\nx,1\n"))
	assert.ErrorIs(t, err, statement.ErrMissingRequiredColumn)
}
