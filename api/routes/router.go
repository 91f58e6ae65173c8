package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/epharm-labs/epharm-backend/api/controllers"
	"github.com/epharm-labs/epharm-backend/api/middleware"
	authsvc "github.com/epharm-labs/epharm-backend/internal/auth"
	bookingsvc "github.com/epharm-labs/epharm-backend/internal/bookings"
	cartsvc "github.com/epharm-labs/epharm-backend/internal/cart"
	catalogsvc "github.com/epharm-labs/epharm-backend/internal/catalog"
	ordersvc "github.com/epharm-labs/epharm-backend/internal/orders"
	paymentsvc "github.com/epharm-labs/epharm-backend/internal/payments"
	pkgauth "github.com/epharm-labs/epharm-backend/pkg/auth"
	"github.com/epharm-labs/epharm-backend/pkg/config"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/epharm-labs/epharm-backend/pkg/redis"
)

type Services struct {
	Auth     *authsvc.Service
	Catalog  *catalogsvc.Service
	Cart     *cartsvc.Service
	Orders   *ordersvc.Service
	Bookings *bookingsvc.Service
	Payments *paymentsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	tokenIssuer *pkgauth.TokenIssuer,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(svcs.Auth, logg))
			r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(svcs.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(svcs.Catalog, logg))
			r.Post("/", controllers.ProductCreate(svcs.Catalog, logg))
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", controllers.ServiceList(svcs.Bookings, logg))
			r.Get("/{serviceId}", controllers.ServiceDetail(svcs.Bookings, logg))
			r.Post("/", controllers.ServiceCreate(svcs.Bookings, logg))
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.BookingCreate(svcs.Bookings, logg))
			r.Post("/status", controllers.BookingStatus(svcs.Bookings, logg))
			r.Get("/{bookingId}", controllers.BookingDetail(svcs.Bookings, logg))
			r.Post("/{bookingId}/confirm", controllers.BookingConfirm(svcs.Bookings, logg))
			r.Post("/{bookingId}/cancel", controllers.BookingCancel(svcs.Bookings, logg))
		})

		// The gateway calls back unauthenticated; the HMAC signature is the
		// credential.
		r.Post("/payments/callback", controllers.PaymentCallback(svcs.Payments, redisClient, logg))
		r.Get("/payments/callback", controllers.PaymentCallbackRedirect(svcs.Payments, redisClient, cfg.Esewa.FrontendRedirect, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenIssuer, logg))

			r.Get("/users/me", controllers.UserMe(svcs.Auth, svcs.Orders, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svcs.Cart, logg))
				r.Post("/items/{productId}", controllers.CartAddItem(svcs.Cart, logg))
				r.Post("/items/{productId}/quantity", controllers.CartAdjustQuantity(svcs.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(svcs.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(svcs.Orders, logg))
				r.Post("/place", controllers.OrderPlace(svcs.Orders, logg))
				r.Post("/checkout", controllers.OrderCheckout(svcs.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(svcs.Orders, logg))
				r.Patch("/{orderId}/status", controllers.OrderUpdateStatus(svcs.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/", controllers.PaymentInitiate(svcs.Payments, logg))
				r.Get("/{transactionUuid}", controllers.PaymentStatus(svcs.Payments, logg))
			})
		})
	})

	return r
}
