// Command tracker serves the money tracker web UI.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"moneytracker/internal/backend"
	"moneytracker/internal/cache"
	"moneytracker/internal/cli"
	apphttp "moneytracker/internal/http"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", log.ComponentApp), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)
	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger.Logger).CreateService(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize spending service", err)
	}

	caches := cache.NewManager(logger.Logger)
	caches.Register("months", res.Service.MonthCache())
	caches.StartCleanup(time.Minute)

	srv, err := apphttp.NewServer(":"+cfg.Port, res.Service, apphttp.Options{
		Logger:         logger,
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		QuoteModel:     cfg.OpenAIModel,
		ServerQuoteKey: cfg.OpenAIAPIKey != "",
		WriteTimeout:   cfg.QuoteTimeout + 10*time.Second,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.ErrorContext(ctx, "Failed to close spending service", log.FieldError, err)
		}
	})

	logger.InfoContext(ctx, "Starting money tracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.AMQP,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.InfoContext(ctx, "Server stopped gracefully")
}
