// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	"github.com/FACorreiaa/finova/internal/domain/categorization"
	"github.com/FACorreiaa/finova/internal/domain/import/parser"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	"github.com/FACorreiaa/finova/internal/domain/import/sniffer"
	"github.com/FACorreiaa/finova/internal/domain/insights"
	"github.com/FACorreiaa/finova/internal/domain/statement"
	"github.com/FACorreiaa/finova/pkg/metrics"
	"github.com/FACorreiaa/finova/pkg/notify"
	"github.com/FACorreiaa/finova/pkg/storage"
)

const sampleRowCount = 5

// ErrEmptyContent is returned when an ingest request carries no bytes.
var ErrEmptyContent = errors.New("statement file is empty")

// IngestRequest is one statement file to ingest.
type IngestRequest struct {
	Filename  string
	Content   []byte
	BankName  string
	AccountID string

	// Meta describes how the file arrived; it feeds bank detection when
	// BankName is empty.
	Meta *assistant.EmailMeta
}

// IngestResult summarizes a completed ingestion.
type IngestResult struct {
	UploadID         uuid.UUID           `json:"upload_id"`
	Filename         string              `json:"filename"`
	Format           parser.Format       `json:"format"`
	BankName         string              `json:"bank_name"`
	AccountID        string              `json:"account_id"`
	TransactionCount int                 `json:"transaction_count"`
	Columns          statement.ColumnMap `json:"columns"`
	Warnings         []string            `json:"warnings,omitempty"`
	ArchiveID        string              `json:"archive_id,omitempty"`
	ArchivePath      string              `json:"archive_path,omitempty"`
}

// AnalyzeResult previews how a file would be read without storing it.
type AnalyzeResult struct {
	Format      parser.Format       `json:"format"`
	Headers     []string            `json:"headers"`
	Columns     statement.ColumnMap `json:"columns"`
	Delimiter   string              `json:"delimiter,omitempty"`
	SkipLines   int                 `json:"skip_lines"`
	Fingerprint string              `json:"fingerprint,omitempty"`
	SampleRows  []statement.RawRow  `json:"sample_rows"`
	RowCount    int                 `json:"row_count"`
}

// BankClassifier attributes a statement to a bank.
type BankClassifier interface {
	Classify(ctx context.Context, meta assistant.EmailMeta) assistant.StatementInfo
}

// Indexer receives newly stored transactions for search.
type Indexer interface {
	Add(txs []statement.Transaction) error
}

// Invalidator drops derived results after a write.
type Invalidator interface {
	Invalidate()
}

// ImportService orchestrates statement ingestion. Only the store is
// required; every other collaborator is optional.
type ImportService struct {
	store      repository.Store
	classifier *categorization.Classifier
	banks      BankClassifier
	archive    storage.Storage
	notifier   notify.Notifier
	index      Indexer
	cache      Invalidator
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer

	defaultBank    string
	defaultAccount string
	now            func() time.Time
}

// NewImportService creates a new import service
func NewImportService(store repository.Store, classifier *categorization.Classifier, logger *slog.Logger) *ImportService {
	return &ImportService{
		store:      store,
		classifier: classifier,
		notifier:   notify.Nop{},
		logger:     logger,
		tracer:     otel.Tracer("finova/import"),
		now:        time.Now,
	}
}

// WithBankClassifier sets bank detection for requests without a bank name.
func (s *ImportService) WithBankClassifier(banks BankClassifier) *ImportService {
	s.banks = banks
	return s
}

// WithArchive keeps a copy of every raw file.
func (s *ImportService) WithArchive(archive storage.Storage) *ImportService {
	s.archive = archive
	return s
}

// WithNotifier sends a summary after each ingestion.
func (s *ImportService) WithNotifier(n notify.Notifier) *ImportService {
	s.notifier = n
	return s
}

// WithIndex feeds stored transactions to a search index.
func (s *ImportService) WithIndex(index Indexer) *ImportService {
	s.index = index
	return s
}

// WithCache invalidates derived results after each ingestion.
func (s *ImportService) WithCache(cache Invalidator) *ImportService {
	s.cache = cache
	return s
}

// WithMetrics records ingestion counters.
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithDefaults sets the provenance used when neither the request nor bank
// detection supplies one.
func (s *ImportService) WithDefaults(bankName, accountID string) *ImportService {
	s.defaultBank = bankName
	s.defaultAccount = accountID
	return s
}

// Ingest reads, parses and stores one statement file.
func (s *ImportService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "Import.Ingest", trace.WithAttributes(attribute.String("filename", req.Filename)))
	defer span.End()

	result, err := s.ingest(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.observeFailure(err)
		s.logger.Error("statement ingestion failed",
			slog.String("filename", req.Filename),
			slog.Any("error", err),
		)
		return nil, err
	}
	span.SetAttributes(attribute.Int("transactions", result.TransactionCount))
	return result, nil
}

func (s *ImportService) ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if len(req.Content) == 0 {
		return nil, ErrEmptyContent
	}

	src := s.resolveSource(ctx, req)

	table, format, err := parser.Read(req.Filename, bytes.NewReader(req.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	stmt, err := statement.Parse(table, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse statement: %w", err)
	}
	for _, w := range stmt.Warnings {
		s.logger.Warn("statement parse warning", slog.String("filename", req.Filename), slog.String("warning", w))
	}

	result := &IngestResult{
		UploadID:  uuid.New(),
		Filename:  req.Filename,
		Format:    format,
		BankName:  src.BankName,
		AccountID: src.AccountID,
		Columns:   stmt.Columns,
		Warnings:  stmt.Warnings,
	}

	if info := s.archiveFile(ctx, req, src); info != nil {
		result.ArchiveID = info.ID.String()
		result.ArchivePath = info.Path
	}

	if len(stmt.Transactions) > 0 {
		n, err := s.store.Insert(ctx, stmt.Transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to store transactions: %w", err)
		}
		result.TransactionCount = n
	} else {
		result.Warnings = append(result.Warnings, "no transactions found")
	}

	upload := repository.Upload{
		ID:               result.UploadID,
		Filename:         req.Filename,
		UploadedAt:       s.now().UTC(),
		TransactionCount: result.TransactionCount,
		BankName:         src.BankName,
		AccountID:        src.AccountID,
	}
	if err := s.store.RecordUpload(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate()
	}

	categorized := s.classifier.Categorize(stmt.Transactions)
	if s.index != nil {
		if err := s.index.Add(categorized); err != nil {
			s.logger.Warn("failed to index transactions", slog.Any("error", err))
		}
	}

	report := insights.Summarize(categorized)
	if err := s.notifier.NotifyIngest(ctx, notify.IngestSummary{
		Filename:         req.Filename,
		BankName:         src.BankName,
		AccountID:        src.AccountID,
		TransactionCount: result.TransactionCount,
		TotalDebits:      report.TotalDebits,
		TotalCredits:     report.TotalCredits,
		Warnings:         result.Warnings,
	}); err != nil {
		s.logger.Warn("failed to send ingest notification", slog.Any("error", err))
	}

	if s.metrics != nil {
		s.metrics.ObserveIngest(string(format), result.TransactionCount)
	}

	s.logger.Info("statement ingested",
		slog.String("upload_id", result.UploadID.String()),
		slog.String("filename", req.Filename),
		slog.String("format", string(format)),
		slog.String("bank_name", src.BankName),
		slog.Int("transactions", result.TransactionCount),
	)
	return result, nil
}

// resolveSource picks the bank from the request, then detection, then the
// configured default.
func (s *ImportService) resolveSource(ctx context.Context, req IngestRequest) statement.Source {
	src := statement.Source{BankName: req.BankName, AccountID: req.AccountID}

	if src.BankName == "" && s.banks != nil {
		meta := assistant.EmailMeta{Filename: req.Filename}
		if req.Meta != nil {
			meta = *req.Meta
			if meta.Filename == "" {
				meta.Filename = req.Filename
			}
		}
		if info := s.banks.Classify(ctx, meta); info.BankName != assistant.Unknown {
			src.BankName = info.BankName
			s.logger.Debug("bank detected",
				slog.String("filename", req.Filename),
				slog.String("bank_name", info.BankName),
				slog.Float64("confidence", info.Confidence),
			)
		}
	}

	if src.BankName == "" {
		src.BankName = s.defaultBank
	}
	if src.AccountID == "" {
		src.AccountID = s.defaultAccount
	}
	return src
}

// archiveFile stores the raw bytes. Failures are logged, not returned.
func (s *ImportService) archiveFile(ctx context.Context, req IngestRequest, src statement.Source) *storage.FileInfo {
	if s.archive == nil {
		return nil
	}
	contentType := mime.TypeByExtension(filepath.Ext(req.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := s.archive.Upload(ctx, src.BankName, req.Filename, contentType, bytes.NewReader(req.Content))
	if err != nil {
		s.logger.Warn("failed to archive statement", slog.String("filename", req.Filename), slog.Any("error", err))
		return nil
	}
	return info
}

func (s *ImportService) observeFailure(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveFailure(FailureReason(err))
}

// FailureReason buckets ingestion errors for metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyContent), errors.Is(err, sniffer.ErrEmptyFile):
		return "empty_file"
	case errors.Is(err, parser.ErrUnsupportedFormat), errors.Is(err, parser.ErrPDFNotSupported):
		return "unsupported_format"
	case errors.Is(err, statement.ErrMissingRequiredColumn), errors.Is(err, sniffer.ErrNoHeadersFound):
		return "unrecognized_layout"
	}
	return "internal"
}

// IsFormatError reports whether err means the file itself was not usable.
func IsFormatError(err error) bool {
	switch FailureReason(err) {
	case "empty_file", "unsupported_format", "unrecognized_layout":
		return true
	}
	return false
}

// Analyze reads a file and reports the detected layout without storing
// anything.
func (s *ImportService) Analyze(ctx context.Context, filename string, content []byte) (*AnalyzeResult, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	table, format, err := parser.Read(filename, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	result := &AnalyzeResult{
		Format:     format,
		Headers:    table.Headers,
		SampleRows: table.Rows[:min(sampleRowCount, len(table.Rows))],
		RowCount:   len(table.Rows),
	}
	if format == parser.FormatCSV {
		if cfg, err := sniffer.Detect(content); err == nil {
			result.Delimiter = string(cfg.Delimiter)
			result.SkipLines = cfg.SkipLines
			result.Fingerprint = cfg.Fingerprint
		}
	} else {
		result.Fingerprint = sniffer.Fingerprint(table.Headers)
	}

	cols, err := statement.ResolveColumns(table.Headers)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve columns: %w", err)
	}
	result.Columns = cols
	return result, nil
}

// Uploads returns recent upload records, newest first.
func (s *ImportService) Uploads(ctx context.Context, limit int) ([]repository.Upload, error) {
	uploads, err := s.store.ListUploads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}
