// Package inbox ingests statement files dropped into a directory, the way
// an email monitor would hand over attachments.
package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	importservice "github.com/FACorreiaa/finova/internal/domain/import/service"
)

const (
	metaSuffix = ".json"
	failedDir  = "failed"
)

// Ingester is the import service surface used by the poller.
type Ingester interface {
	Ingest(ctx context.Context, req importservice.IngestRequest) (*importservice.IngestResult, error)
}

// Meta is the optional sidecar "<file>.json" describing the email a
// statement arrived with.
type Meta struct {
	Subject     string `json:"subject"`
	FromAddress string `json:"from_address"`
	BodySnippet string `json:"body_snippet"`
	BankName    string `json:"bank_name"`
	AccountID   string `json:"account_id"`
}

// Result counts the outcome of one poll.
type Result struct {
	Processed    int `json:"processed"`
	Failed       int `json:"failed"`
	Transactions int `json:"transactions"`
}

// Poller moves files from an inbox directory through the import service.
type Poller struct {
	ingester     Ingester
	inboxDir     string
	processedDir string
	logger       *slog.Logger
}

// NewPoller creates a poller over inboxDir. Handled files are moved to
// processedDir, failures to processedDir/failed.
func NewPoller(ingester Ingester, inboxDir, processedDir string, logger *slog.Logger) *Poller {
	return &Poller{
		ingester:     ingester,
		inboxDir:     inboxDir,
		processedDir: processedDir,
		logger:       logger,
	}
}

// Run is the cron entry point.
func (p *Poller) Run(ctx context.Context) error {
	_, err := p.Poll(ctx)
	return err
}

// Poll ingests every statement currently in the inbox. A file that fails
// to ingest is counted and moved aside; only directory errors are returned.
func (p *Poller) Poll(ctx context.Context) (Result, error) {
	var result Result

	files, err := p.pending()
	if err != nil {
		return result, err
	}
	if len(files) == 0 {
		return result, nil
	}

	for _, dir := range []string{p.processedDir, filepath.Join(p.processedDir, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return result, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, ingestErr := p.ingestFile(ctx, name)
		dest := p.processedDir
		if ingestErr != nil {
			result.Failed++
			dest = filepath.Join(p.processedDir, failedDir)
			p.logger.Warn("inbox file failed",
				slog.String("file", name),
				slog.Any("error", ingestErr),
			)
		} else {
			result.Processed++
			result.Transactions += n
		}

		if err := p.move(name, dest); err != nil {
			return result, err
		}
	}

	p.logger.Info("inbox poll completed",
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Int("transactions", result.Transactions),
	)
	return result, nil
}

// pending lists statement files in name order, skipping sidecars,
// directories and dotfiles.
func (p *Poller) pending() ([]string, error) {
	entries, err := os.ReadDir(p.inboxDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read inbox %s: %w", p.inboxDir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.EqualFold(filepath.Ext(name), metaSuffix) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func (p *Poller) ingestFile(ctx context.Context, name string) (int, error) {
	content, err := os.ReadFile(filepath.Join(p.inboxDir, name))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", name, err)
	}

	meta, err := p.readMeta(name)
	if err != nil {
		return 0, err
	}

	res, err := p.ingester.Ingest(ctx, importservice.IngestRequest{
		Filename:  name,
		Content:   content,
		BankName:  strings.TrimSpace(meta.BankName),
		AccountID: strings.TrimSpace(meta.AccountID),
		Meta: &assistant.EmailMeta{
			Subject:     meta.Subject,
			FromAddress: meta.FromAddress,
			BodySnippet: meta.BodySnippet,
			Filename:    name,
		},
	})
	if err != nil {
		return 0, err
	}
	return res.TransactionCount, nil
}

func (p *Poller) readMeta(name string) (Meta, error) {
	var meta Meta
	raw, err := os.ReadFile(filepath.Join(p.inboxDir, name+metaSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata for %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode metadata for %s: %w", name, err)
	}
	return meta, nil
}

// move relocates the file and its sidecar, if any, into dest.
func (p *Poller) move(name, dest string) error {
	for _, n := range []string{name, name + metaSuffix} {
		src := filepath.Join(p.inboxDir, n)
		if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.Rename(src, filepath.Join(dest, n)); err != nil {
			return fmt.Errorf("failed to move %s: %w", n, err)
		}
	}
	return nil
}
