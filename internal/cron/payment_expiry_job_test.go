package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

type stubExpirer struct {
	expired int
	err     error
	gotTTL  time.Duration
}

func (s *stubExpirer) ExpireStalePending(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	s.gotTTL = ttl
	return s.expired, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func TestPaymentExpiryJobRun(t *testing.T) {
	t.Parallel()

	expirer := &stubExpirer{expired: 3}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   testLogger(),
		Payments: expirer,
		TTL:      6 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}

	if job.Name() != "payment-expiry" {
		t.Fatalf("unexpected job name %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.gotTTL != 6*time.Hour {
		t.Fatalf("expected configured TTL, got %s", expirer.gotTTL)
	}
}

func TestPaymentExpiryJobPropagatesErrors(t *testing.T) {
	t.Parallel()

	expirer := &stubExpirer{err: errors.New("db down")}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   testLogger(),
		Payments: expirer,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing expirer")
	}
}

func TestPaymentExpiryJobDefaultsTTL(t *testing.T) {
	t.Parallel()

	expirer := &stubExpirer{}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   testLogger(),
		Payments: expirer,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if expirer.gotTTL != 24*time.Hour {
		t.Fatalf("expected default 24h TTL, got %s", expirer.gotTTL)
	}
}
