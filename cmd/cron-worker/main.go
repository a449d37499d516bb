package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brianmwirigi/sokofresh-backend/internal/cron"
	"github.com/brianmwirigi/sokofresh-backend/internal/notifications"
	"github.com/brianmwirigi/sokofresh-backend/internal/payments"
	"github.com/brianmwirigi/sokofresh-backend/internal/sales"
	"github.com/brianmwirigi/sokofresh-backend/internal/wallet"
	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
	"github.com/brianmwirigi/sokofresh-backend/pkg/metrics"
	"github.com/brianmwirigi/sokofresh-backend/pkg/migrate"
	"github.com/brianmwirigi/sokofresh-backend/pkg/mpesa"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/redis"
)

const lockKeyFormat = "sf:cron-worker:lock:%s"

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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	salesSvc, err := sales.NewService(sales.NewRepository(conn), publisher, dbClient, cfg.Billing)
	if err != nil {
		return nil, err
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), publisher)
	if err != nil {
		return nil, err
	}
	gateway, err := mpesa.NewClient(cfg.Mpesa)
	if err != nil {
		return nil, err
	}
	paymentsSvc, err := payments.NewService(
		payments.NewRepository(conn),
		salesSvc,
		walletSvc,
		gateway,
		redisClient,
		publisher,
		dbClient,
		cfg.Mpesa,
	)
	if err != nil {
		return nil, err
	}

	debtSweep, err := cron.NewDebtSweepJob(cron.DebtSweepJobParams{
		Logger: logg,
		Sales:  salesSvc,
	})
	if err != nil {
		return nil, err
	}
	stkExpiry, err := cron.NewStkExpiryJob(cron.StkExpiryJobParams{
		Logger:   logg,
		Payments: paymentsSvc,
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: notifications.NewRepository(conn),
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(debtSweep, stkExpiry, cleanup), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
