package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/budget"
	"fintrack/internal/cli"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.MustSetup(applog.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	res, _, _ := cli.MustOpenBackend(ctx, logger, cfg)
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewBudgetWorker(res.Store, budget.NewBook(cfg.Budgets).For, logger)

	// report anything missed while the worker was down
	if err := w.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup budget check", applog.FieldError, err.Error())
	}

	err = client.ConsumeWithRetry(ctx, w.HandleEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
