package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	paymentsvc "github.com/epharm-labs/epharm-backend/internal/payments"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/esewa"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

type stubPaymentService struct {
	reconciled []esewa.CallbackPayload
	reconcile  func(payload esewa.CallbackPayload) (*models.PendingPayment, error)
}

func (s *stubPaymentService) Initiate(ctx context.Context, input paymentsvc.InitiateInput) (*paymentsvc.InitiateResult, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubPaymentService) Reconcile(ctx context.Context, payload esewa.CallbackPayload) (*models.PendingPayment, error) {
	s.reconciled = append(s.reconciled, payload)
	if s.reconcile != nil {
		return s.reconcile(payload)
	}
	return &models.PendingPayment{
		TransactionUUID: payload.TransactionUUID,
		Status:          enums.PaymentStatusComplete,
	}, nil
}

func (s *stubPaymentService) Status(ctx context.Context, transactionUUID string) (*models.PendingPayment, error) {
	return &models.PendingPayment{TransactionUUID: transactionUUID, Status: enums.PaymentStatusPending}, nil
}

type stubGuard struct {
	held map[string]bool
}

func newStubGuard() *stubGuard {
	return &stubGuard{held: map[string]bool{}}
}

func (g *stubGuard) IdempotencyKey(scope, id string) string {
	return "epharm:idempotency:" + scope + ":" + id
}

func (g *stubGuard) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func (g *stubGuard) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(g.held, key)
	}
	return nil
}

func controllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestPaymentCallbackReconciles(t *testing.T) {
	svc := &stubPaymentService{}
	guard := newStubGuard()
	handler := PaymentCallback(svc, guard, controllerLogger())

	body, _ := json.Marshal(esewa.CallbackPayload{
		TransactionUUID: "tx-100",
		Status:          "COMPLETE",
		TransactionCode: "0007T5A",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.reconciled) != 1 || svc.reconciled[0].TransactionUUID != "tx-100" {
		t.Fatalf("expected one reconcile call for tx-100, got %+v", svc.reconciled)
	}
	if !guard.held["epharm:idempotency:payment_callback:tx-100"] {
		t.Fatal("expected the idempotency key to stay marked after success")
	}
}

func TestPaymentCallbackDuplicateFenced(t *testing.T) {
	svc := &stubPaymentService{}
	guard := newStubGuard()
	handler := PaymentCallback(svc, guard, controllerLogger())

	body, _ := json.Marshal(esewa.CallbackPayload{TransactionUUID: "tx-200", Status: "COMPLETE"})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("first delivery should succeed, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("duplicate delivery should be fenced with 422, got %d", rec.Code)
		}
	}
	if len(svc.reconciled) != 1 {
		t.Fatalf("duplicate must not reach the service, got %d calls", len(svc.reconciled))
	}
}

func TestPaymentCallbackGuardReleasedOnFailure(t *testing.T) {
	svc := &stubPaymentService{
		reconcile: func(payload esewa.CallbackPayload) (*models.PendingPayment, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")
		},
	}
	guard := newStubGuard()
	handler := PaymentCallback(svc, guard, controllerLogger())

	body, _ := json.Marshal(esewa.CallbackPayload{TransactionUUID: "tx-300", Status: "COMPLETE"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatal("expected error status when reconciliation fails")
	}
	if guard.held["epharm:idempotency:payment_callback:tx-300"] {
		t.Fatal("guard key should be released so the gateway can retry")
	}
}

func TestPaymentCallbackRedirect(t *testing.T) {
	svc := &stubPaymentService{}
	guard := newStubGuard()
	handler := PaymentCallbackRedirect(svc, guard, "https://shop.example.com/payment/result", controllerLogger())

	payload, _ := json.Marshal(esewa.CallbackPayload{TransactionUUID: "tx-400", Status: "COMPLETE"})
	encoded := base64.StdEncoding.EncodeToString(payload)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback?data="+encoded, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if location == "" {
		t.Fatal("expected a redirect target")
	}
	if want := "transaction_uuid=tx-400"; !bytes.Contains([]byte(location), []byte(want)) {
		t.Fatalf("expected %q in redirect %q", want, location)
	}
	if want := "status=complete"; !bytes.Contains([]byte(location), []byte(want)) {
		t.Fatalf("expected %q in redirect %q", want, location)
	}
}

func TestPaymentCallbackRedirectBadPayload(t *testing.T) {
	svc := &stubPaymentService{}
	handler := PaymentCallbackRedirect(svc, newStubGuard(), "https://shop.example.com/payment/result", controllerLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/callback?data=*not-base64*", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect even for bad payloads, got %d", rec.Code)
	}
	if len(svc.reconciled) != 0 {
		t.Fatal("undecodable payloads must not reach the service")
	}
}
