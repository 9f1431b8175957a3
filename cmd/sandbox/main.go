package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inapppay/config"
	httpHandler "inapppay/internal/adapter/http/handler"
	"inapppay/internal/adapter/storage/memory"
	redisStorage "inapppay/internal/adapter/storage/redis"
	"inapppay/internal/core/ports"
	"inapppay/internal/metrics"
	"inapppay/internal/sandbox"
	"inapppay/internal/service"
	"inapppay/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load(os.Getenv("IAP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Sandbox.Mode)

	log.Info().
		Str("mode", cfg.Sandbox.Mode).
		Int("port", cfg.Sandbox.Port).
		Str("cache", cfg.Sandbox.Cache).
		Msg("Starting purchase sandbox")

	ctx := context.Background()

	var (
		cache          ports.IdempotencyCache = memory.NewIdempotencyCache()
		rateLimitStore *redisStorage.RateLimitStore
		checkers       []ports.HealthChecker
	)
	if cfg.Sandbox.Cache == "redis" {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		cache = redisStorage.NewIdempotencyCache(rdb)
		if cfg.Sandbox.RateLimit > 0 {
			rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		}
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	} else if cfg.Sandbox.RateLimit > 0 {
		log.Warn().Msg("sandbox.rate_limit needs sandbox.cache=redis, rate limiting disabled")
	}

	backend := sandbox.NewBackend(sandbox.Config{
		ReceiptSecret:  cfg.Sandbox.ReceiptSecret,
		IdempotencyTTL: cfg.Sandbox.IdempotencyTTL,
	}, cache, service.NewHMACReceiptSigner(), logger.Component(log, "sandbox"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Backend:        backend,
		RateLimitStore: rateLimitStore,
		PurchaseLimit:  cfg.Sandbox.RateLimit,
		HealthCheckers: checkers,
		HTTPMetrics:    metrics.NewHTTP(reg),
		Gatherer:       reg,
		Logger:         log,
	})

	addr := cfg.Sandbox.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
