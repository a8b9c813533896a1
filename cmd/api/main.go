package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tourlanka/tourlanka-backend/api/routes"
	"github.com/tourlanka/tourlanka-backend/internal/activation"
	"github.com/tourlanka/tourlanka-backend/internal/catalog"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/internal/receipts"
	vouchersvc "github.com/tourlanka/tourlanka-backend/internal/vouchers"
	payherewebhook "github.com/tourlanka/tourlanka-backend/internal/webhooks/payhere"
	stripewebhook "github.com/tourlanka/tourlanka-backend/internal/webhooks/stripe"
	"github.com/tourlanka/tourlanka-backend/pkg/config"
	"github.com/tourlanka/tourlanka-backend/pkg/db"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
	"github.com/tourlanka/tourlanka-backend/pkg/metrics"
	"github.com/tourlanka/tourlanka-backend/pkg/migrate"
	"github.com/tourlanka/tourlanka-backend/pkg/payhere"
	"github.com/tourlanka/tourlanka-backend/pkg/redis"
	"github.com/tourlanka/tourlanka-backend/pkg/stripe"
)

const (
	stripeWebhookScope = "stripe-webhook"
	stripeWebhookTTL   = 24 * time.Hour
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

	listingRepo := catalog.NewListingRepository(dbClient.DB())
	vehicleRepo := catalog.NewVehicleRepository(dbClient.DB())
	guideRepo := catalog.NewGuideRepository(dbClient.DB())
	blogRepo := catalog.NewBlogRepository(dbClient.DB())
	tourRepo := catalog.NewTourRepository(dbClient.DB())

	dispatcher, err := activation.NewDispatcher(activation.DispatcherParams{
		Listings: listingRepo,
		Vehicles: vehicleRepo,
		Guides:   guideRepo,
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

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	paymentsRepo := paymentsvc.NewRepository(dbClient.DB())

	paymentsService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Repo:       paymentsRepo,
		Tx:         dbClient,
		Dispatcher: dispatcher,
		Receipts:   receiptSender,
		Logger:     logg,

		PayHere:          payhereClient,
		Stripe:           paymentsvc.NewStripeCheckoutClient(stripeClient),
		StripeSuccessURL: stripeClient.SuccessURL(),
		StripeCancelURL:  stripeClient.CancelURL(),

		Metrics: paymentMetrics,

		ReconcilePendingAge: cfg.Reconcile.PendingAge,
		ReconcileLimit:      cfg.Reconcile.Limit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	vouchersService, err := vouchersvc.NewService(vouchersvc.ServiceParams{
		Ledger:   paymentsRepo,
		Tx:       dbClient,
		Blogs:    blogRepo,
		Tours:    tourRepo,
		Vehicles: vehicleRepo,
		Guides:   guideRepo,
		Listings: listingRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create vouchers service", err)
		os.Exit(1)
	}

	payhereWebhookService, err := payherewebhook.NewService(payherewebhook.ServiceParams{
		MerchantID:     cfg.PayHere.MerchantID,
		MerchantSecret: cfg.PayHere.MerchantSecret,
		Payments:       paymentsService,
		Logger:         logg,
		Metrics:        paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payhere webhook service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentsService,
		Lookup:   paymentsRepo,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	stripeWebhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripeWebhookTTL, stripeWebhookScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			paymentsService,
			vouchersService,
			payhereWebhookService,
			stripeClient,
			stripeWebhookService,
			stripeWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
