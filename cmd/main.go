package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ojeda-dev/fintrack/internal/config"
	"github.com/ojeda-dev/fintrack/internal/events"
	"github.com/ojeda-dev/fintrack/internal/httpapi"
	"github.com/ojeda-dev/fintrack/internal/storage/memory"
	pgstore "github.com/ojeda-dev/fintrack/internal/storage/postgres"
	"github.com/ojeda-dev/fintrack/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	srvCfg := httpapi.Config{Log: logger}
	var closeFns []func()

	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFns = append(closeFns, pg.Close)
		srvCfg.Transactions = pg.Transactions()
		srvCfg.Categories = pg.Categories()
		srvCfg.Subscriptions = pg.Subscriptions()
		srvCfg.Reports = pg
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("failed to open sqlite database", "err", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		closeFns = append(closeFns, func() { _ = db.Close() })
		srvCfg.Transactions = db.Transactions()
		srvCfg.Categories = db.Categories()
		srvCfg.Subscriptions = db.Subscriptions()
		srvCfg.Reports = db
	default:
		store := memory.New()
		store.SeedDefaults(time.Now().UTC())
		srvCfg.Transactions = store.Transactions()
		srvCfg.Categories = store.Categories()
		srvCfg.Subscriptions = store.Subscriptions()
		srvCfg.Reports = store
	}
	logger.Info("storage backend: " + cfg.Backend)

	if cfg.AMQPURL != "" {
		pub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to connect to amqp", "err", err)
			os.Exit(1)
		}
		closeFns = append(closeFns, func() { _ = pub.Close() })
		srvCfg.Events = pub
		logger.Info("event publishing enabled", "exchange", cfg.AMQPExchange)
	}

	api := httpapi.New(srvCfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("fintrack service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := api.RunBilling(gctx, cfg.BillingInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	for _, fn := range closeFns {
		fn()
	}
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
