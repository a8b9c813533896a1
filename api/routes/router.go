package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tourlanka/tourlanka-backend/api/controllers"
	webhookcontrollers "github.com/tourlanka/tourlanka-backend/api/controllers/webhooks"
	"github.com/tourlanka/tourlanka-backend/api/middleware"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	vouchersvc "github.com/tourlanka/tourlanka-backend/internal/vouchers"
	payherewebhook "github.com/tourlanka/tourlanka-backend/internal/webhooks/payhere"
	stripewebhook "github.com/tourlanka/tourlanka-backend/internal/webhooks/stripe"
	"github.com/tourlanka/tourlanka-backend/pkg/config"
	"github.com/tourlanka/tourlanka-backend/pkg/db"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
	"github.com/tourlanka/tourlanka-backend/pkg/redis"
	"github.com/tourlanka/tourlanka-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	paymentsService paymentsvc.Service,
	vouchersService vouchersvc.Service,
	payhereWebhookService *payherewebhook.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// Gateways authenticate with their own signatures, not bearer tokens.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payhere", webhookcontrollers.PayHereWebhook(payhereWebhookService, logg))
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/checkout/payhere", controllers.CreatePayHereCheckout(paymentsService, logg))
			r.Post("/checkout/stripe", controllers.CreateStripeCheckout(paymentsService, logg))
			r.Get("/{orderID}", controllers.PaymentStatus(paymentsService, logg))
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", controllers.ListVouchers(vouchersService, logg))
			r.Post("/redeem/blog", controllers.RedeemSponsoredBlog(vouchersService, logg))
			r.Post("/redeem/tour", controllers.RedeemTourPartnership(vouchersService, logg))
			r.Post("/apply/vehicle", controllers.ApplyVehicleVoucher(vouchersService, logg))
			r.Post("/apply/guide", controllers.ApplyGuideVoucher(vouchersService, logg))
			r.Post("/apply/listing", controllers.ApplyListingVoucher(vouchersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/payments", func(r chi.Router) {
			r.Post("/{orderID}/refund", controllers.AdminRefundPayment(paymentsService, logg))
			r.Post("/reconcile", controllers.AdminReconcilePayments(paymentsService, logg))
		})
	})

	return r
}
