package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/finova/internal/domain/assistant"
	"github.com/FACorreiaa/finova/internal/domain/categorization"
	importhandler "github.com/FACorreiaa/finova/internal/domain/import/handler"
	"github.com/FACorreiaa/finova/internal/domain/import/inbox"
	importrepo "github.com/FACorreiaa/finova/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/finova/internal/domain/import/service"
	"github.com/FACorreiaa/finova/internal/domain/insights"
	insightshandler "github.com/FACorreiaa/finova/internal/domain/insights/handler"
	"github.com/FACorreiaa/finova/pkg/config"
	"github.com/FACorreiaa/finova/pkg/cron"
	"github.com/FACorreiaa/finova/pkg/db"
	"github.com/FACorreiaa/finova/pkg/metrics"
	"github.com/FACorreiaa/finova/pkg/middleware"
	"github.com/FACorreiaa/finova/pkg/notify"
	"github.com/FACorreiaa/finova/pkg/storage"
)

const (
	inboxJobName    = "inbox"
	inboxJobTimeout = 10 * time.Minute
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	Store   importrepo.Store
	Archive storage.Storage

	// Services
	Classifier          *categorization.Classifier
	Banks               *categorization.BankMatcher
	Generator           assistant.Generator
	StatementClassifier *assistant.StatementClassifier
	Index               *assistant.Index
	InsightsService     *insights.Service
	Chat                *assistant.Chat
	Notifier            notify.Notifier
	Metrics             *metrics.Metrics
	ImportService       *importservice.ImportService
	Poller              *inbox.Poller
	Scheduler           *cron.Scheduler
	Auth                *middleware.Authenticator

	// Handlers
	ImportHandler   *importhandler.ImportHandler
	ArchiveHandler  *importhandler.ArchiveHandler
	InsightsHandler *insightshandler.InsightsHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		slog.String("db_driver", cfg.Database.Driver),
		slog.Bool("assistant", deps.Generator != nil),
		slog.Bool("notify", cfg.Notify.Enabled()),
	)

	return deps, nil
}

// initDatabase opens the configured store and runs migrations
func (d *Dependencies) initDatabase(ctx context.Context) error {
	switch d.Config.Database.Driver {
	case config.DriverPostgres:
		database, err := db.New(ctx, db.Config{
			DSN:             d.Config.Database.DSN(),
			MaxConns:        int32(d.Config.Database.MaxConns),
			MinConns:        1,
			MaxConnLifetime: 5 * time.Minute,
			MaxConnIdleTime: 10 * time.Minute,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.DB = database

		if err := d.DB.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		d.Store = importrepo.NewPostgresStore(d.DB.Pool)

	case config.DriverSQLite:
		store, err := importrepo.OpenSQLite(ctx, d.Config.Database.SQLitePath)
		if err != nil {
			return err
		}
		d.Store = store

	default:
		d.Store = importrepo.NewMemoryStore()
	}

	d.Logger.Info("store ready", slog.String("driver", d.Config.Database.Driver))
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices(ctx context.Context) error {
	cfg := d.Config

	rules := categorization.DefaultRules()
	if cfg.Categories.RulesPath != "" {
		loaded, err := categorization.LoadRules(cfg.Categories.RulesPath)
		if err != nil {
			return err
		}
		rules = loaded
	}
	d.Classifier = categorization.NewClassifier(rules)
	d.Banks = categorization.NewBankMatcher(cfg.Ingest.KnownBanks)

	if cfg.Gemini.Enabled() {
		gen, err := assistant.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return err
		}
		d.Generator = gen
	}
	d.StatementClassifier = assistant.NewStatementClassifier(d.Banks, d.Generator, d.Logger)

	index, err := assistant.NewIndex()
	if err != nil {
		return err
	}
	d.Index = index

	d.InsightsService = insights.NewService(d.Store, d.Classifier, cfg.Cache.SummaryTTL, d.Logger)
	d.Chat = assistant.NewChat(d.InsightsService, d.Index, d.Generator, d.Logger)

	// Rebuild the search index from what is already stored.
	existing, err := d.InsightsService.Transactions(ctx, importrepo.ListFilter{})
	if err != nil {
		return fmt.Errorf("failed to load transactions for index: %w", err)
	}
	if err := d.Index.Add(existing); err != nil {
		return err
	}

	d.Notifier = notify.Nop{}
	if cfg.Notify.Enabled() {
		d.Notifier = notify.NewEmailNotifier(cfg.Notify.ResendAPIKey, cfg.Notify.From, cfg.Notify.To, d.Logger)
	}

	archive, err := storage.New(ctx, &storage.Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		LocalPath: cfg.Storage.LocalPath,
		GCSBucket: cfg.Storage.GCSBucket,
	})
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.Archive = archive

	d.Metrics = metrics.New()

	d.ImportService = importservice.NewImportService(d.Store, d.Classifier, d.Logger).
		WithBankClassifier(d.StatementClassifier).
		WithArchive(d.Archive).
		WithNotifier(d.Notifier).
		WithIndex(d.Index).
		WithCache(d.InsightsService).
		WithMetrics(d.Metrics).
		WithDefaults(cfg.Ingest.DefaultBankName, cfg.Ingest.DefaultAccountID)

	d.Poller = inbox.NewPoller(d.ImportService, cfg.Ingest.InboxDir, cfg.Ingest.ProcessedDir, d.Logger)
	d.Scheduler = cron.NewScheduler(d.Logger)
	if cfg.Ingest.InboxDir != "" {
		if err := d.Scheduler.Register(inboxJobName, cfg.Ingest.Schedule, inboxJobTimeout, d.Poller.Run); err != nil {
			return err
		}
	}

	if cfg.Auth.Enabled {
		d.Auth = middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	}

	d.Logger.Info("services initialized",
		slog.Int("category_patterns", d.Classifier.PatternCount()),
		slog.Int("known_banks", d.Banks.Len()),
		slog.Int("indexed_transactions", d.Index.Len()),
	)
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.InsightsService, d.Index, d.Config.Server.MaxUploadBytes, d.Logger)
	d.ArchiveHandler = importhandler.NewArchiveHandler(d.Archive, d.Logger)
	d.InsightsHandler = insightshandler.NewInsightsHandler(d.InsightsService, d.Chat, d.Logger)
}

// Router builds the public HTTP surface.
func (d *Dependencies) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.CORS(d.Config.Server.AllowedOrigins))
	r.Use(middleware.NewRateLimiter(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst, d.Logger).Handler)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Handler)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/statements", d.ImportHandler.UploadStatement)
			r.Post("/statements/analyze", d.ImportHandler.AnalyzeStatement)
			r.Get("/uploads", d.ImportHandler.ListUploads)
			r.Get("/transactions", d.ImportHandler.ListTransactions)
			r.Get("/transactions/export", d.ImportHandler.ExportTransactions)
			r.Get("/transactions/search", d.ImportHandler.SearchTransactions)
			r.Get("/archive/{bank}", d.ArchiveHandler.ListFiles)
			r.Get("/archive/{bank}/{id}", d.ArchiveHandler.DownloadFile)
			r.Delete("/archive/{bank}/{id}", d.ArchiveHandler.DeleteFile)
			r.Get("/summary", d.InsightsHandler.GetSummary)
			r.Get("/charts", d.InsightsHandler.GetCharts)
			r.Post("/chat", d.InsightsHandler.Chat)
		})

		path, h := d.InsightsHandler.ConnectHandler()
		r.Handle(path, h)
	})

	return r
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Index != nil {
		if err := d.Index.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if closer, ok := d.Archive.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			d.Logger.Warn("failed to close file storage", slog.Any("error", err))
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.Warn("failed to close store", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
