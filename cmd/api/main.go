package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qanlink/qanlink-backend/api/routes"
	"github.com/qanlink/qanlink-backend/internal/centers"
	"github.com/qanlink/qanlink-backend/internal/donations"
	"github.com/qanlink/qanlink-backend/internal/geo"
	"github.com/qanlink/qanlink-backend/internal/notifications"
	"github.com/qanlink/qanlink-backend/internal/requests"
	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/config"
	"github.com/qanlink/qanlink-backend/pkg/db"
	"github.com/qanlink/qanlink-backend/pkg/geocode"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/migrate"
	"github.com/qanlink/qanlink-backend/pkg/outbox"
	"github.com/qanlink/qanlink-backend/pkg/pubsub"
	"github.com/qanlink/qanlink-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	usersRepo := users.NewRepository(dbClient.DB())

	donorIndex := geo.NewIndex()
	syncer, err := geo.NewSyncer(donorIndex, usersRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create geo syncer", err)
		os.Exit(1)
	}
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	syncer.Start(syncCtx)
	defer syncer.Stop()
	if err := syncer.Resync(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to build donor index", err)
		os.Exit(1)
	}

	geocoder := geocode.NewClient(
		geocode.WithEndpoint(cfg.Geocode.Endpoint),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocode.Timeout}),
	)

	usersService, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Index:    syncer,
		Finder:   donorIndex,
		Geocoder: geocoder,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	requestsService, err := requests.NewService(requests.ServiceParams{
		Repo:    requests.NewRepository(dbClient.DB()),
		Users:   usersRepo,
		DB:      dbClient,
		Emitter: emitter,
		Config:  cfg.Requests,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	donationsService, err := donations.NewService(donations.ServiceParams{
		Repo:   donations.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create donations service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	centerIndex := geo.NewIndex()
	centersService, err := centers.NewService(centers.ServiceParams{
		Repo:   centers.NewRepository(dbClient.DB()),
		DB:     dbClient,
		Index:  centerIndex,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create centers service", err)
		os.Exit(1)
	}
	if cfg.FeatureFlags.SeedCenters {
		seeded, err := centersService.EnsureSeeded(context.Background())
		if err != nil {
			logg.Error(context.Background(), "failed to seed donation centers", err)
			os.Exit(1)
		}
		if seeded > 0 {
			ctx := logg.WithField(context.Background(), "seeded", seeded)
			logg.Info(ctx, "seeded default donation centers")
		}
	} else if err := centersService.Reindex(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to build center index", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Broker:        pubsubClient,
			Users:         usersService,
			Requests:      requestsService,
			Donations:     donationsService,
			Notifications: notificationsService,
			Centers:       centersService,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
