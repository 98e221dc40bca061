package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bazarkala/bazarkala-backend/internal/catalog"
	"github.com/bazarkala/bazarkala-backend/internal/cron"
	"github.com/bazarkala/bazarkala-backend/internal/inventory"
	"github.com/bazarkala/bazarkala-backend/internal/purchaserequest"
	"github.com/bazarkala/bazarkala-backend/pkg/config"
	"github.com/bazarkala/bazarkala-backend/pkg/db"
	"github.com/bazarkala/bazarkala-backend/pkg/logger"
	"github.com/bazarkala/bazarkala-backend/pkg/metrics"
	"github.com/bazarkala/bazarkala-backend/pkg/migrate"
	"github.com/bazarkala/bazarkala-backend/pkg/redis"
)

const lockKeyFormat = "bzk:sweeper-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweeper-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweeper-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sweeper-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	inventoryRepo := inventory.NewRepository(dbClient.DB())
	requestRepo := purchaserequest.NewRepository(dbClient.DB())

	inventoryService, err := inventory.NewService(inventoryRepo, catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	requestService, err := purchaserequest.NewService(requestRepo, inventoryRepo, inventoryService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase request service", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Sweeper.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewRequestExpiryJob(cron.RequestExpiryJobParams{
		Logger:     logg,
		Candidates: requestRepo,
		Expirer:    requestService,
		Metrics:    metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sweeper worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweeper worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweeper worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
