package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/finova/pkg/middleware"
	"github.com/FACorreiaa/finova/pkg/storage"
)

// ArchiveHandler serves the raw statement files kept at ingest time. Files
// are addressed by bank namespace and archive id.
type ArchiveHandler struct {
	archive storage.Storage
	logger  *slog.Logger
}

// NewArchiveHandler creates a new archive handler.
func NewArchiveHandler(archive storage.Storage, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archive: archive, logger: logger}
}

// ListFiles handles GET /api/v1/archive/{bank}.
func (h *ArchiveHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	bank := chi.URLParam(r, "bank")
	files, err := h.archive.List(r.Context(), bank)
	if err != nil {
		h.logger.Error("failed to list archive", slog.String("bank", bank), slog.Any("error", err))
		middleware.WriteError(w, http.StatusInternalServerError, "failed to list archived files")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"count": len(files),
	})
}

// DownloadFile handles GET /api/v1/archive/{bank}/{id}.
func (h *ArchiveHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	bank, id, ok := archiveParams(w, r)
	if !ok {
		return
	}

	body, info, err := h.archive.Download(r.Context(), bank, id)
	if err != nil {
		h.writeError(w, "failed to download archived file", err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("failed to stream archived file", slog.String("id", id.String()), slog.Any("error", err))
	}
}

// DeleteFile handles DELETE /api/v1/archive/{bank}/{id}.
func (h *ArchiveHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	bank, id, ok := archiveParams(w, r)
	if !ok {
		return
	}
	if err := h.archive.Delete(r.Context(), bank, id); err != nil {
		h.writeError(w, "failed to delete archived file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArchiveHandler) writeError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "archived file not found")
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}

func archiveParams(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "invalid archive id")
		return "", uuid.Nil, false
	}
	return chi.URLParam(r, "bank"), id, true
}
