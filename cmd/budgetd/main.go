package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MendoxIta/haos-budget/internal/config"
	"github.com/MendoxIta/haos-budget/internal/httpapi"
	"github.com/MendoxIta/haos-budget/internal/ledger"
	applog "github.com/MendoxIta/haos-budget/internal/log"
	"github.com/MendoxIta/haos-budget/internal/notify"
	"github.com/MendoxIta/haos-budget/internal/persist"
	"github.com/MendoxIta/haos-budget/internal/service"
	"github.com/MendoxIta/haos-budget/internal/worker"
)

func main() {
	cfg := config.Load()

	logger := applog.New(applog.Config{Level: cfg.LogLevel})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := persist.New(persist.Config{
		Type:         persist.BackendType(cfg.Backend),
		DataFile:     cfg.DataFile,
		SQLiteDBPath: cfg.SQLiteDBPath,
	}, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize snapshot store", "error", err, "backend", cfg.Backend)
		os.Exit(1)
	}
	defer db.Close()

	dispatcher := notify.NewDispatcher()
	notifier, closeNotifier := buildNotifier(cfg, dispatcher, logger)
	defer closeNotifier()

	svc := service.New(ledger.NewStore(cfg.Accounts), db, notifier)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := svc.Setup(ctx); err != nil {
		logger.Error("Failed to load budget snapshot", "error", err)
		os.Exit(1)
	}

	rollover := worker.NewRolloverWorker(svc)
	if err := rollover.Start(ctx); err != nil {
		logger.Error("Failed to start rollover worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        httpapi.NewServer(svc, dispatcher, logger).Handler(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server",
			"port", cfg.Port,
			"backend", cfg.Backend,
			"accounts", cfg.Accounts)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := rollover.Stop(shutdownCtx); err != nil {
			logger.Warn("Rollover worker shutdown error", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// buildNotifier wires the in-process dispatcher, which feeds the
// /api/events stream, and, when configured, the AMQP publisher. AMQP
// init failure degrades to local-only notifications rather than
// aborting startup.
func buildNotifier(cfg *config.Config, dispatcher *notify.Dispatcher, logger *applog.Logger) (notify.Notifier, func()) {
	if cfg.AMQPURL == "" {
		return dispatcher, func() {}
	}

	publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Warn("Failed to initialize AMQP publisher, continuing with local notifications only",
			"error", err)
		return dispatcher, func() {}
	}
	logger.Info("Initialized AMQP publisher", "exchange", cfg.AMQPExchange)
	return notify.Multi{dispatcher, publisher}, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("AMQP publisher close error", "error", err)
		}
	}
}
