package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/epharm-labs/epharm-backend/api/routes"
	authsvc "github.com/epharm-labs/epharm-backend/internal/auth"
	bookingsvc "github.com/epharm-labs/epharm-backend/internal/bookings"
	cartsvc "github.com/epharm-labs/epharm-backend/internal/cart"
	catalogsvc "github.com/epharm-labs/epharm-backend/internal/catalog"
	ordersvc "github.com/epharm-labs/epharm-backend/internal/orders"
	paymentsvc "github.com/epharm-labs/epharm-backend/internal/payments"
	"github.com/epharm-labs/epharm-backend/internal/users"
	pkgauth "github.com/epharm-labs/epharm-backend/pkg/auth"
	"github.com/epharm-labs/epharm-backend/pkg/config"
	"github.com/epharm-labs/epharm-backend/pkg/db"
	"github.com/epharm-labs/epharm-backend/pkg/esewa"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/epharm-labs/epharm-backend/pkg/metrics"
	"github.com/epharm-labs/epharm-backend/pkg/migrate"
	"github.com/epharm-labs/epharm-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	tokenIssuer, err := pkgauth.NewTokenIssuer(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create token issuer", err)
		os.Exit(1)
	}

	signer, err := esewa.NewSigner(cfg.Esewa)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway signer", err)
		os.Exit(1)
	}

	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	catalogRepo := catalogsvc.NewRepository(conn)
	cartRepo := cartsvc.NewRepository(conn)
	ordersRepo := ordersvc.NewRepository(conn)
	bookingsRepo := bookingsvc.NewRepository(conn)
	servicesRepo := bookingsvc.NewServiceRepository(conn)
	paymentsRepo := paymentsvc.NewRepository(conn)

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Users:       usersRepo,
		TokenIssuer: tokenIssuer,
		Password:    cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalogsvc.NewService(catalogsvc.ServiceParams{Repo: catalogRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartsvc.ServiceParams{
		Repo:    cartRepo,
		Catalog: catalogRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := ordersvc.NewService(ordersvc.ServiceParams{
		Tx:      dbClient,
		Repo:    ordersRepo,
		Catalog: catalogRepo,
		Cart:    cartRepo,
		Metrics: commerceMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	bookingService, err := bookingsvc.NewService(bookingsvc.ServiceParams{
		Repo:     bookingsRepo,
		Services: servicesRepo,
		Metrics:  commerceMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	paymentService, err := paymentsvc.NewService(paymentsvc.ServiceParams{
		Tx:       dbClient,
		Repo:     paymentsRepo,
		Signer:   signer,
		Orders:   orderService,
		Bookings: bookingService,
		Metrics:  commerceMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, tokenIssuer, routes.Services{
			Auth:     authService,
			Catalog:  catalogService,
			Cart:     cartService,
			Orders:   orderService,
			Bookings: bookingService,
			Payments: paymentService,
		}),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
