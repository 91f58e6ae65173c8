package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

const expiryBatchLimit = 250

type stalePaymentExpirer interface {
	ExpireStalePending(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

// PaymentExpiryJobParams configure the stale payment scheduler.
type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	Payments stalePaymentExpirer
	TTL      time.Duration
}

// NewPaymentExpiryJob builds the cron job that fails PENDING gateway
// transactions whose callback never arrived.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &paymentExpiryJob{
		logg:     params.Logger,
		payments: params.Payments,
		ttl:      ttl,
	}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	payments stalePaymentExpirer
	ttl      time.Duration
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	expired, err := j.payments.ExpireStalePending(ctx, j.ttl, expiryBatchLimit)
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": expired})
	if err != nil {
		return fmt.Errorf("expire stale payments: %w", err)
	}
	j.logg.Info(logCtx, "payment expiry loop complete")
	return nil
}
