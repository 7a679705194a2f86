package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tradedash/internal/amqp"
	"tradedash/internal/backend"
	"tradedash/internal/cache"
	"tradedash/internal/cli"
	"tradedash/internal/config"
	apphttp "tradedash/internal/http"
	applog "tradedash/internal/log"
	"tradedash/internal/services"
	"tradedash/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.ShutdownContext()
	err := run(ctx, logger, cfg)
	stop()
	if err != nil {
		cli.Fatal(logger, "tradedash stopped", err)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until ctx is cancelled. Every resource it opens is released
// before it returns, on success and on error.
func run(ctx context.Context, logger *applog.Logger, cfg *config.Config) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	src, err := backend.NewFactory(logger.Logger).CreateSource(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize data source: %w", err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("Failed to close data source", "error", err)
		}
	}()

	// AMQP is optional: without it the instance never hears about reloads
	// done elsewhere, and only RELOAD_INTERVAL keeps it fresh.
	var (
		publisher services.Publisher
		consumer  worker.Consumer
	)
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer amqpClient.Close()
		publisher, consumer = amqpClient, amqpClient

		queue := cfg.AMQPQueue
		if queue == "" {
			queue = "(private)"
		}
		logger.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange, "queue", queue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	dashboard := services.NewDashboardService(src.Source, publisher, services.DashboardOptions{
		SampleSize:          cfg.SampleSize,
		SampleSeed:          cfg.SampleSeed,
		DefaultCountryCount: cfg.DefaultCountryCount,
		DefaultTheme:        cfg.DefaultTheme,
		CacheSize:           cfg.CacheSize,
		CacheTTL:            cfg.CacheTTL,
		InstanceID:          cfg.InstanceID,
	})

	// A dataset that cannot be read at startup is fatal.
	stats, err := dashboard.Reload(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	applog.NewStructuredLogger(logger).LogDatasetLoaded(ctx, stats.Source, stats.Rows, stats.Years)

	caches := cache.NewManager()
	caches.Register(dashboard.ViewCache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, dashboard, logger.WithComponent(applog.ComponentHTTP), apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowOrigin:        cfg.AllowOrigin,
	})
	reloadWorker := worker.NewReloadWorker(dashboard, consumer, cfg.ReloadInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting tradedash server", "port", cfg.Port, "source", stats.Source, "instance", cfg.InstanceID)
		return srv.ListenAndServe()
	})
	if reloadWorker.Enabled() {
		g.Go(func() error {
			return reloadWorker.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
