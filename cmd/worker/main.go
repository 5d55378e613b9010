// The worker consumes resource-change events published by the API and logs
// them. It is the attachment point for downstream processing (exports,
// notifications) that should not run inside the API process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ojeda-dev/fintrack/internal/config"
	"github.com/ojeda-dev/fintrack/internal/events"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	client, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("failed to connect to amqp", "err", err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("worker consuming resource events", "queue", cfg.AMQPQueue)
	err = client.Consume(ctx, func(m *events.Message) error {
		logger.Info("resource changed",
			"resource", m.Resource,
			"action", m.Action,
			"id", m.ID,
			"timestamp", m.Timestamp,
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "err", err)
		os.Exit(1)
	}
}
