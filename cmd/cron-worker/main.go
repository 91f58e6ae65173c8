package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/epharm-labs/epharm-backend/internal/bookings"
	"github.com/epharm-labs/epharm-backend/internal/cart"
	"github.com/epharm-labs/epharm-backend/internal/catalog"
	"github.com/epharm-labs/epharm-backend/internal/cron"
	"github.com/epharm-labs/epharm-backend/internal/orders"
	"github.com/epharm-labs/epharm-backend/internal/payments"
	"github.com/epharm-labs/epharm-backend/pkg/config"
	"github.com/epharm-labs/epharm-backend/pkg/db"
	"github.com/epharm-labs/epharm-backend/pkg/esewa"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/epharm-labs/epharm-backend/pkg/metrics"
	"github.com/epharm-labs/epharm-backend/pkg/migrate"
	"github.com/epharm-labs/epharm-backend/pkg/redis"
)

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

	signer, err := esewa.NewSigner(cfg.Esewa)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway signer", err)
		os.Exit(1)
	}

	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	orderService, err := orders.NewService(orders.ServiceParams{
		Tx:      dbClient,
		Repo:    orders.NewRepository(conn),
		Catalog: catalog.NewRepository(conn),
		Cart:    cart.NewRepository(conn),
		Metrics: commerceMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	bookingService, err := bookings.NewService(bookings.ServiceParams{
		Repo:     bookings.NewRepository(conn),
		Services: bookings.NewServiceRepository(conn),
		Metrics:  commerceMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Tx:       dbClient,
		Repo:     payments.NewRepository(conn),
		Signer:   signer,
		Orders:   orderService,
		Bookings: bookingService,
		Metrics:  commerceMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger:   logg,
		Payments: paymentService,
		TTL:      cfg.Cron.PendingPaymentTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment expiry job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}
