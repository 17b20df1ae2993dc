package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cache"
	"ledger/internal/cli"
	"ledger/internal/engine"
	apphttp "ledger/internal/http"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal("Configuration validation failed", err)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal("Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(slog.Default()).CreateBackend(ctx, bcfg)
	if err != nil {
		cli.Fatal("Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	defer res.Close()

	cacheManager := cache.NewManager()
	defer cacheManager.Stop()

	memo := cache.NewLRUCache[engine.Balance](cfg.CacheSize, cfg.CacheTTL)
	cacheManager.Register(memo)

	var responses cache.Cache[[]byte]
	if cfg.RedisAddr != "" {
		rc := cache.NewRedisCache(cfg.RedisAddr, "ledger:http:", cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn("Redis unavailable, using in-process response cache", "addr", cfg.RedisAddr, "error", err)
			_ = rc.Close()
		} else {
			responses = rc
			defer rc.Close()
			logger.Info("Using Redis response cache", "addr", cfg.RedisAddr)
		}
	}
	if responses == nil {
		lru := cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL)
		cacheManager.Register(lru)
		responses = lru
	}
	cacheManager.StartCleanup(time.Minute)

	var events ledger.EventPublisher
	if cfg.HasAMQP() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			// Writes still succeed; the worker catches up on its refresh tick.
			logger.Error("Failed to initialize AMQP client, ledger changes will not be announced", "error", err)
		} else {
			defer client.Close()
			events = client
		}
	}

	svc := services.NewLedgerService(res.Store, events, engine.New(memo))
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Cache:              responses,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              res.Ready,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting ledger server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", "error", err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	m := srv.Metrics()
	logger.Info("Server stopped gracefully",
		"total_requests", m.TotalRequests,
		"server_errors", m.ServerErrors)
}
