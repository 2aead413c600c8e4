// Command server runs the BetFeed market engine: REST API, WebSocket hub,
// and the PostgreSQL-backed trade orchestrator.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/betfeed/betfeed/internal/api"
	"github.com/betfeed/betfeed/internal/config"
	"github.com/betfeed/betfeed/internal/repository"
	"github.com/betfeed/betfeed/internal/service"
	"github.com/betfeed/betfeed/internal/ws"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// ── Database ──────────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := runMigrations(db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database ready")

	// ── Wiring ────────────────────────────────────────────────────────────────
	marketRepo := repository.NewMarketRepository(db)
	positionRepo := repository.NewPositionRepository(db)

	marketService := service.NewMarketService(db, marketRepo, cfg)
	tradeService := service.NewTradeService(db, marketRepo, positionRepo, cfg)

	hub := ws.NewHub([]byte(cfg.JWT.AccessSecret), nil)
	go hub.Run()
	tradeService.SetBroadcaster(hub)
	marketService.SetBroadcaster(hub)

	router := api.NewRouter(api.Deps{
		Cfg:     cfg,
		Markets: marketService,
		Trades:  tradeService,
		Hub:     hub,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Serve with graceful shutdown ──────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// setupLogger installs slog as the process-wide logger: JSON in production,
// human-readable text in development.
func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsProd() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

// runMigrations applies every *.sql file in dir, in lexical order.  The files
// are written to be idempotent (CREATE TABLE IF NOT EXISTS and the like) so
// re-running at every boot is safe.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
		slog.Info("migration applied", "file", f)
	}
	return nil
}
