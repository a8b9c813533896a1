package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tourlanka/tourlanka-backend/internal/activation"
	"github.com/tourlanka/tourlanka-backend/internal/catalog"
	"github.com/tourlanka/tourlanka-backend/internal/cron"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/internal/receipts"
	"github.com/tourlanka/tourlanka-backend/pkg/config"
	"github.com/tourlanka/tourlanka-backend/pkg/db"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
	"github.com/tourlanka/tourlanka-backend/pkg/metrics"
	"github.com/tourlanka/tourlanka-backend/pkg/migrate"
	"github.com/tourlanka/tourlanka-backend/pkg/payhere"
	"github.com/tourlanka/tourlanka-backend/pkg/redis"
	"github.com/tourlanka/tourlanka-backend/pkg/stripe"
)

const lockKeyFormat = "tl:cron-worker:lock:%s"

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

	payhereClient, err := payhere.NewClient(context.Background(), cfg.PayHere, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payhere client", err)
		os.Exit(1)
	}

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	dispatcher, err := activation.NewDispatcher(activation.DispatcherParams{
		Listings: catalog.NewListingRepository(dbClient.DB()),
		Vehicles: catalog.NewVehicleRepository(dbClient.DB()),
		Guides:   catalog.NewGuideRepository(dbClient.DB()),
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activation dispatcher", err)
		os.Exit(1)
	}

	receiptSender, err := receipts.NewLogSender(logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt sender", err)
		os.Exit(1)
	}

	paymentsService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Repo:       paymentsvc.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		Dispatcher: dispatcher,
		Receipts:   receiptSender,
		Logger:     logg,

		PayHere:          payhereClient,
		Stripe:           paymentsvc.NewStripeCheckoutClient(stripeClient),
		StripeSuccessURL: stripeClient.SuccessURL(),
		StripeCancelURL:  stripeClient.CancelURL(),

		Metrics: metrics.NewPaymentMetrics(prometheus.DefaultRegisterer),

		ReconcilePendingAge: cfg.Reconcile.PendingAge,
		ReconcileLimit:      cfg.Reconcile.Limit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:   logg,
		Payments: paymentsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(reconcileJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Reconcile.Interval,
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

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
