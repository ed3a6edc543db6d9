package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qanlink/qanlink-backend/internal/cron"
	"github.com/qanlink/qanlink-backend/internal/geo"
	"github.com/qanlink/qanlink-backend/internal/notifications"
	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/db"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/metrics"
	"github.com/qanlink/qanlink-backend/pkg/migrate"
	"github.com/qanlink/qanlink-backend/pkg/push"
	"github.com/qanlink/qanlink-backend/pkg/redis"
)

const lockName = "cron-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	usersRepo := users.NewRepository(dbClient.DB())

	pushClient := push.NewClient(
		push.WithEndpoint(cfg.Push.Endpoint),
		push.WithAccessToken(cfg.Push.AccessToken),
		push.WithBatchSize(cfg.Push.BatchSize),
		push.WithHTTPClient(&http.Client{Timeout: cfg.Push.Timeout}),
	)

	reminderJob, err := cron.NewEligibilityReminderJob(cron.EligibilityReminderParams{
		Users:         usersRepo,
		Notifications: notifications.NewRepository(dbClient.DB()),
		DB:            dbClient,
		Push:          pushClient,
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create eligibility reminder job", err)
		os.Exit(1)
	}

	donorIndex := geo.NewIndex()
	syncer, err := geo.NewSyncer(donorIndex, usersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create geo syncer", err)
		os.Exit(1)
	}
	resyncJob, err := cron.NewGeoResyncJob(syncer)
	if err != nil {
		logg.Error(context.Background(), "failed to create geo resync job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockKey(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reminderJob, resyncJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", lockName, env)
}
