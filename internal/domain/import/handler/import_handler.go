// Package handler implements the statement upload and transaction HTTP
// endpoints.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	"github.com/FACorreiaa/finova/internal/domain/import/parser"
	"github.com/FACorreiaa/finova/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/finova/internal/domain/import/service"
	"github.com/FACorreiaa/finova/internal/domain/statement"
	"github.com/FACorreiaa/finova/pkg/middleware"
)

const defaultSearchLimit = 20

// Ingester is the import service surface used here.
type Ingester interface {
	Ingest(ctx context.Context, req importservice.IngestRequest) (*importservice.IngestResult, error)
	Analyze(ctx context.Context, filename string, content []byte) (*importservice.AnalyzeResult, error)
	Uploads(ctx context.Context, limit int) ([]repository.Upload, error)
}

// TransactionSource supplies categorized transactions.
type TransactionSource interface {
	Transactions(ctx context.Context, filter repository.ListFilter) ([]statement.Transaction, error)
}

// Searcher runs full-text queries over transactions.
type Searcher interface {
	Search(query string, limit int) ([]assistant.SearchHit, error)
}

// ImportHandler handles uploads and transaction listing.
type ImportHandler struct {
	importSvc      Ingester
	transactions   TransactionSource
	search         Searcher
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewImportHandler creates a new import handler. search may be nil.
func NewImportHandler(importSvc Ingester, transactions TransactionSource, search Searcher, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importSvc:      importSvc,
		transactions:   transactions,
		search:         search,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// UploadStatement handles POST /api/v1/statements with a multipart "file"
// and optional bank_name and account_id fields.
func (h *ImportHandler) UploadStatement(w http.ResponseWriter, r *http.Request) {
	filename, content, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.importSvc.Ingest(r.Context(), importservice.IngestRequest{
		Filename:  filename,
		Content:   content,
		BankName:  strings.TrimSpace(r.FormValue("bank_name")),
		AccountID: strings.TrimSpace(r.FormValue("account_id")),
	})
	if err != nil {
		h.writeIngestError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, result)
}

// AnalyzeStatement handles POST /api/v1/statements/analyze.
func (h *ImportHandler) AnalyzeStatement(w http.ResponseWriter, r *http.Request) {
	filename, content, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.importSvc.Analyze(r.Context(), filename, content)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

func (h *ImportHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if r.ContentLength > h.maxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
		return "", nil, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return "", nil, false
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return "", nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read upload", slog.Any("error", err))
		middleware.WriteError(w, http.StatusBadRequest, "failed to read file")
		return "", nil, false
	}
	return header.Filename, content, true
}

func (h *ImportHandler) writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, importservice.ErrEmptyContent):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case importservice.IsFormatError(err):
		middleware.WriteError(w, http.StatusUnprocessableEntity, fmt.Sprintf("file format not recognized: %v", err))
	default:
		middleware.WriteError(w, http.StatusInternalServerError, "failed to ingest statement")
	}
}

// ListUploads handles GET /api/v1/uploads.
func (h *ImportHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 0)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	uploads, err := h.importSvc.Uploads(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list uploads", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"uploads": uploads,
		"count":   len(uploads),
	})
}

// ListTransactions handles GET /api/v1/transactions.
func (h *ImportHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.loadTransactions(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

// ExportTransactions handles GET /api/v1/transactions/export.
func (h *ImportHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	txs, ok := h.loadTransactions(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := parser.WriteCSV(w, txs); err != nil {
		h.logger.Error("failed to export transactions", slog.Any("error", err))
	}
}

func (h *ImportHandler) loadTransactions(w http.ResponseWriter, r *http.Request) ([]statement.Transaction, bool) {
	filter, err := repository.ParseListFilter(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	txs, err := h.transactions.Transactions(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list transactions", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list transactions")
		return nil, false
	}
	return txs, true
}

// SearchTransactions handles GET /api/v1/transactions/search.
func (h *ImportHandler) SearchTransactions(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "search is not available")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		middleware.WriteError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := queryLimit(r, defaultSearchLimit)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	hits, err := h.search.Search(query, limit)
	if err != nil {
		h.logger.Error("failed to search transactions", slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to search transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"hits":  hits,
		"count": len(hits),
	})
}

func queryLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}
