package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"

	"reportpdf/internal/config"
	"reportpdf/internal/http/handlers"
	"reportpdf/internal/http/middleware"
	"reportpdf/internal/http/server"
	"reportpdf/internal/infra/cache"
	"reportpdf/internal/infra/chrome"
	"reportpdf/internal/infra/fetch"
	"reportpdf/internal/infra/logging"
	"reportpdf/internal/infra/pdfdoc"
	"reportpdf/internal/infra/postgres"
	"reportpdf/internal/infra/rodpdf"
	"reportpdf/internal/pipeline"
	"reportpdf/internal/report"
)

func main() {
	cfg := config.Load()
	// Allow common container env var to override chrome_path.
	if cfg.PDF.ChromePath == "" {
		if v := os.Getenv("CHROME_BIN"); v != "" {
			cfg.PDF.ChromePath = v
		}
	}
	if err := ensureLogDir(cfg.Logger.File); err != nil {
		fmt.Fprintf(os.Stderr, "create log directory: %v\n", err)
		cfg.Logger.File = ""
	}
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logging.Debug(fmt.Sprintf(format, args...))
	})); err != nil {
		logging.Warn("Failed to set GOMAXPROCS", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pdfCache *cache.PDFCache
	if cfg.Cache.PDFCacheEnabled && cfg.Cache.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisHost,
			DB:   cfg.Cache.PDFCacheDB,
		})
		defer rdb.Close()
		pdfCache = cache.New(rdb, cfg.Cache.PDFCacheTTL)
	}

	var tokens middleware.Tokens
	if cfg.Auth.Postgres.Enabled() {
		store := postgres.NewTokenStore(cfg.Auth.Postgres)
		defer store.Close()
		if err := store.Load(ctx); err != nil {
			logging.Error("Failed to load API tokens", "error", err)
		}
		go store.Refresh(ctx, cfg.Auth.ReloadInterval)
		tokens = store
	}

	renderer, stats := newRenderer(cfg)
	defer renderer.Close()

	reports, err := report.NewBuilder(cfg)
	if err != nil {
		logging.Error("Failed to prepare report templates", "error", err)
		os.Exit(1)
	}

	svc := &handlers.Service{
		Config: cfg,
		Pipeline: pipeline.New(renderer, pdfdoc.New(),
			pipeline.WithConcurrency(cfg.PDF.RenderConcurrency),
			pipeline.WithRecordTimeout(cfg.RenderTimeout()),
		),
		Reports: reports,
		Fetcher: fetch.New(cfg),
		Cache:   pdfCache,
		Stats:   stats,
	}
	app := server.New(server.Deps{Config: cfg, Reports: svc, Tokens: tokens})

	idleConnsClosed := make(chan struct{})
	logging.Info("Starting server", "addr", cfg.Server.Host+cfg.Server.Port, "engine", cfg.PDF.Engine)
	listenErr := startServer(app, cfg, idleConnsClosed)
	<-idleConnsClosed
	if listenErr != nil {
		renderer.Close()
		os.Exit(1)
	}
}

type engine interface {
	pipeline.Renderer
	Close() error
}

// newRenderer picks the configured engine. The second result reports pool
// statistics and is nil for engines without a pool.
func newRenderer(cfg config.Config) (engine, func() any) {
	if cfg.PDF.Engine == config.EngineRod {
		return rodpdf.NewRenderer(cfg), nil
	}
	r := chrome.NewRenderer(cfg)
	return r, func() any { return r.Stats() }
}

func ensureLogDir(file string) error {
	if file == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(file), 0o755)
}

// startServer starts the Fiber app and waits for a shutdown signal or a
// listen failure. The listen error, if any, is returned once the app is shut
// down.
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			listenErr <- err
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigint)

	var err error
	select {
	case <-sigint:
		logging.Warn("Shutdown signal received, closing server...")
	case err = <-listenErr:
		logging.Error("Server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped")
	return err
}
