// Command tracker-worker mirrors saved days to Google Sheets. It consumes
// spending.saved messages and periodically sweeps records not yet mirrored.
package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"moneytracker/internal/amqp"
	"moneytracker/internal/backend"
	"moneytracker/internal/cli"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
	"moneytracker/internal/storage"
	"moneytracker/internal/worker"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", log.ComponentWorker), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	if !cfg.MirrorEnabled() {
		cli.Fatal(logger, "Nothing to do", errors.New("GOOGLE_SPREADSHEET_ID is not set"))
	}
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		cli.Fatal(logger, "Worker needs the shared SQLite store", errors.New("DATA_BACKEND must be sqlite"))
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	factory := backend.NewFactory(logger.Logger)

	store, err := factory.CreateStore(backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open record store", err)
	}
	defer store.Store.Close()

	source, ok := store.Store.(worker.Source)
	if !ok {
		cli.Fatal(logger, "Record store cannot track mirrored rows", errors.New(store.Type.String()))
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	mirror, err := factory.CreateMirror(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets mirror", err)
	}
	mw := worker.NewMirrorWorker(source, mirror, cfg.SyncBatchSize)

	logger.InfoContext(ctx, "Performing startup sync check", log.FieldOperation, log.OpStartup)
	if err := mw.StartupSyncCheck(ctx); err != nil {
		// the periodic sweep retries
		logger.ErrorContext(ctx, "Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "AMQP unavailable, relying on periodic sync", log.FieldError, err)
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeSpendingSaved(gctx, mw.HandleSavedMessage)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	processor := services.NewMirrorProcessor(mw, services.MirrorProcessorConfig{PollInterval: cfg.SyncInterval})
	if err := processor.Start(gctx); err != nil {
		cli.Fatal(logger, "Failed to start mirror processor", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	logger.InfoContext(ctx, "Worker running",
		"sync_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize,
		"amqp_enabled", cfg.AMQPURL != "")

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Worker stopped with error", log.FieldError, err)
	}
	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	logger.InfoContext(context.Background(), "Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}

var _ worker.Source = (*storage.SQLiteRepository)(nil)
