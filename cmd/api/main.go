package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sumon-ahmed84/book-courier-server11/api/routes"
	"github.com/sumon-ahmed84/book-courier-server11/internal/catalog"
	"github.com/sumon-ahmed84/book-courier-server11/internal/checkout"
	"github.com/sumon-ahmed84/book-courier-server11/internal/orders"
	"github.com/sumon-ahmed84/book-courier-server11/internal/reconcile"
	"github.com/sumon-ahmed84/book-courier-server11/internal/sellerrequests"
	"github.com/sumon-ahmed84/book-courier-server11/internal/users"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/metrics"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/migrate"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/payments"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/redis"
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

	paymentsClient, err := payments.NewClient(context.Background(), cfg.Payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payments client", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, cfg.Catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService := orders.NewService(orderRepo)

	userRepo := users.NewRepository(dbClient.DB())
	requestRepo := sellerrequests.NewRepository(dbClient.DB())
	userService := users.NewService(userRepo, requestRepo, dbClient, logg)
	requestService := sellerrequests.NewService(requestRepo, userRepo)

	checkoutService := checkout.NewService(catalogRepo, paymentsClient, cfg.Payments, logg)
	engine := reconcile.NewEngine(
		dbClient,
		paymentsClient,
		orderRepo,
		catalogRepo,
		redisClient,
		cfg.Payments.GuardTTL,
		metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
		logg,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"payments_env": paymentsClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Catalog:        catalogService,
			Orders:         orderService,
			Checkout:       checkoutService,
			Reconcile:      engine,
			Users:          userService,
			SellerRequests: requestService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
