// Command finova ingests bank statements and serves the dashboard API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/FACorreiaa/finova/internal/domain/import/parser"
	importrepo "github.com/FACorreiaa/finova/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/finova/internal/domain/import/service"
	"github.com/FACorreiaa/finova/pkg/config"
	"github.com/FACorreiaa/finova/pkg/logger"
	"github.com/FACorreiaa/finova/pkg/middleware"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = withDeps(runServe)
	case "ingest":
		err = withDeps(runIngest)
	case "summary":
		err = withDeps(runSummary)
	case "sample":
		err = runSample(os.Args[2:], os.Stdout)
	case "token":
		err = runToken(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finova")
	fmt.Println("\nUsage:")
	fmt.Println("  finova <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  serve     Run the HTTP API, metrics endpoint and inbox job")
	fmt.Println("  ingest    Ingest statement files, or poll the inbox once with -inbox")
	fmt.Println("  summary   Print the spending summary as JSON")
	fmt.Println("  sample    Write a synthetic statement CSV")
	fmt.Println("  token     Mint a bearer token for the API")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'finova <command> -h' for more information on a command.")
}

type command func(ctx context.Context, deps *Dependencies, args []string) error

func withDeps(run command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := InitDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	return run(ctx, deps, os.Args[2:])
}

func runServe(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := deps.Config
	log := deps.Logger

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           deps.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", deps.Metrics.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("metrics server listening", slog.String("addr", metricsServer.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	deps.Scheduler.Start()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	<-deps.Scheduler.Stop().Done()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to stop metrics server", slog.Any("error", err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func runIngest(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	bankName := fs.String("bank", "", "Bank name stamped on every transaction (detected when empty)")
	accountID := fs.String("account", "", "Account identifier stamped on every transaction")
	pollInbox := fs.Bool("inbox", false, "Poll INBOX_DIR once instead of reading file arguments")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *pollInbox {
		result, err := deps.Poller.Poll(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, result)
	}

	if fs.NArg() == 0 {
		return errors.New("usage: finova ingest [-bank NAME] [-account ID] FILE...")
	}

	results := make([]*importservice.IngestResult, 0, fs.NArg())
	for _, path := range fs.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		result, err := deps.ImportService.Ingest(ctx, importservice.IngestRequest{
			Filename:  filepath.Base(path),
			Content:   content,
			BankName:  *bankName,
			AccountID: *accountID,
		})
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		results = append(results, result)
	}
	return printJSON(os.Stdout, results)
}

func runSummary(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	bankName := fs.String("bank", "", "Only include this bank")
	accountID := fs.String("account", "", "Only include this account")
	charts := fs.Bool("charts", false, "Print chart series instead of the summary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := importrepo.ListFilter{BankName: *bankName, AccountID: *accountID}
	if *charts {
		data, err := deps.InsightsService.Charts(ctx, filter)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, data)
	}

	report, err := deps.InsightsService.Summary(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, report)
}

func runSample(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sample", flag.ExitOnError)
	seed := fs.Int64("seed", time.Now().UnixNano(), "Random seed")
	rows := fs.Int("rows", 30, "Number of transactions")
	start := fs.String("start", time.Now().AddDate(0, -1, 0).Format(time.DateOnly), "First transaction date (YYYY-MM-DD)")
	out := fs.String("out", "", "Output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	startDate, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	w := stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	return parser.NewSampleGenerator(*seed).WriteCSV(w, *rows, startDate)
}

func runToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	subject := fs.String("subject", "", "Token subject")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	token, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer).IssueToken(*subject, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
