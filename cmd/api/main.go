package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/brianmwirigi/sokofresh-backend/api/routes"
	"github.com/brianmwirigi/sokofresh-backend/internal/catalog"
	"github.com/brianmwirigi/sokofresh-backend/internal/notifications"
	"github.com/brianmwirigi/sokofresh-backend/internal/orders"
	"github.com/brianmwirigi/sokofresh-backend/internal/payments"
	"github.com/brianmwirigi/sokofresh-backend/internal/pickup"
	"github.com/brianmwirigi/sokofresh-backend/internal/sales"
	"github.com/brianmwirigi/sokofresh-backend/internal/wallet"
	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	"github.com/brianmwirigi/sokofresh-backend/pkg/db"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
	"github.com/brianmwirigi/sokofresh-backend/pkg/migrate"
	"github.com/brianmwirigi/sokofresh-backend/pkg/mpesa"
	"github.com/brianmwirigi/sokofresh-backend/pkg/outbox"
	"github.com/brianmwirigi/sokofresh-backend/pkg/redis"
)

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

	svcs, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	conn := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), publisher)
	if err != nil {
		return routes.Services{}, err
	}
	pickupSvc, err := pickup.NewService(pickup.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(conn), publisher)
	if err != nil {
		return routes.Services{}, err
	}
	salesSvc, err := sales.NewService(sales.NewRepository(conn), publisher, dbClient, cfg.Billing)
	if err != nil {
		return routes.Services{}, err
	}

	gateway, err := mpesa.NewClient(cfg.Mpesa)
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(conn),
		catalogSvc,
		salesSvc,
		walletSvc,
		pickupSvc,
		publisher,
		dbClient,
	)
	if err != nil {
		return routes.Services{}, err
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:       catalogSvc,
		Orders:        ordersSvc,
		Sales:         salesSvc,
		Payments:      paymentsSvc,
		Wallet:        walletSvc,
		Pickup:        pickupSvc,
		Notifications: notificationsSvc,
	}, nil
}
