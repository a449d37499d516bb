package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brianmwirigi/sokofresh-backend/api/controllers"
	"github.com/brianmwirigi/sokofresh-backend/api/middleware"
	"github.com/brianmwirigi/sokofresh-backend/internal/catalog"
	"github.com/brianmwirigi/sokofresh-backend/internal/notifications"
	"github.com/brianmwirigi/sokofresh-backend/internal/orders"
	"github.com/brianmwirigi/sokofresh-backend/internal/payments"
	"github.com/brianmwirigi/sokofresh-backend/internal/pickup"
	"github.com/brianmwirigi/sokofresh-backend/internal/sales"
	"github.com/brianmwirigi/sokofresh-backend/internal/wallet"
	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the HTTP layer serves.
type Services struct {
	Catalog       catalog.Service
	Orders        orders.Service
	Sales         sales.Service
	Payments      payments.Service
	Wallet        wallet.Service
	Pickup        pickup.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	cacheP pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cacheP))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mpesa", controllers.MpesaCallback(svcs.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Browsing and guest checkout need no account.
		r.Get("/products", controllers.ListProducts(svcs.Catalog, logg))
		r.Get("/products/{productId}", controllers.GetProduct(svcs.Catalog, logg))
		r.Get("/pickup-slots", controllers.ListPickupSlots(svcs.Pickup, logg))
		r.With(middleware.OptionalAuth(cfg.JWT, logg)).Post("/orders", controllers.CreateOrder(svcs.Orders, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/orders/{orderId}", controllers.GetOrder(svcs.Orders, logg))
			r.Get("/my/orders", controllers.ListMyOrders(svcs.Orders, logg))

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", controllers.GetWalletBalance(svcs.Wallet, logg))
				r.Get("/transactions", controllers.ListWalletTransactions(svcs.Wallet, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
			})

			r.Post("/payments/stk-push", controllers.InitiateStkPush(svcs.Payments, logg))
		})
	})

	r.Route("/api/staff/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireStaff(logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(svcs.Catalog, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(svcs.Catalog, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Post("/{orderId}/confirm", controllers.ConfirmOrder(svcs.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(svcs.Orders, logg))
			r.Post("/{orderId}/ready", controllers.MarkOrderReady(svcs.Orders, logg))
			r.Post("/{orderId}/pickup", controllers.ConfirmPickup(svcs.Orders, logg))
			r.Get("/{orderId}/sale", controllers.GetOrderSale(svcs.Sales, logg))
		})
		r.Post("/pickup/verify", controllers.VerifyPickup(svcs.Orders, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Get("/{saleId}", controllers.GetSale(svcs.Sales, logg))
			r.Get("/{saleId}/payments", controllers.ListSalePayments(svcs.Payments, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/cash", controllers.RecordCashPayment(svcs.Payments, logg))
			r.Post("/card", controllers.RecordCardPayment(svcs.Payments, logg))
			r.Post("/{paymentId}/refund", controllers.RefundPayment(svcs.Payments, logg))
		})

		r.Post("/pickup-slots", controllers.CreatePickupSlot(svcs.Pickup, logg))
		r.Get("/alerts", controllers.ListStaffAlerts(svcs.Notifications, logg))
	})

	return r
}
