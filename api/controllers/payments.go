package controllers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/epharm-labs/epharm-backend/api/middleware"
	"github.com/epharm-labs/epharm-backend/api/responses"
	"github.com/epharm-labs/epharm-backend/api/validators"
	paymentsvc "github.com/epharm-labs/epharm-backend/internal/payments"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/esewa"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

const callbackGuardTTL = 24 * time.Hour

type paymentService interface {
	Initiate(ctx context.Context, input paymentsvc.InitiateInput) (*paymentsvc.InitiateResult, error)
	Reconcile(ctx context.Context, payload esewa.CallbackPayload) (*models.PendingPayment, error)
	Status(ctx context.Context, transactionUUID string) (*models.PendingPayment, error)
}

// callbackGuard fences duplicate gateway callbacks racing through the
// handler. The database replay check stays authoritative.
type callbackGuard interface {
	IdempotencyKey(scope, id string) string
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// PaymentInitiate registers a pending gateway transaction and returns the
// signed field set the client forwards to the gateway.
func PaymentInitiate(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		uid, err := uuid.Parse(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		var payload paymentsvc.InitiateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.UserID = &uid

		result, err := svc.Initiate(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// PaymentCallback reconciles a gateway notification delivered as a JSON
// POST. The signature is verified before any state moves.
func PaymentCallback(svc paymentService, guard callbackGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		// Gateway payloads carry fields beyond the signed set; tolerate them.
		var payload esewa.CallbackPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		payment, err := reconcileGuarded(r.Context(), svc, guard, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// PaymentCallbackRedirect handles the browser leg of the gateway flow: the
// payload arrives base64-encoded in the data query parameter and the user
// is bounced to the frontend with the outcome.
func PaymentCallbackRedirect(svc paymentService, guard callbackGuard, frontendURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirect := func(status, transactionUUID string) {
			target, err := url.Parse(frontendURL)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "invalid frontend redirect url"))
				return
			}
			q := target.Query()
			q.Set("status", status)
			if transactionUUID != "" {
				q.Set("transaction_uuid", transactionUUID)
			}
			target.RawQuery = q.Encode()
			http.Redirect(w, r, target.String(), http.StatusSeeOther)
		}

		if svc == nil {
			redirect("error", "")
			return
		}

		raw := r.URL.Query().Get("data")
		if raw == "" {
			redirect("failed", "")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			decoded, err = base64.URLEncoding.DecodeString(raw)
		}
		if err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "undecodable gateway callback payload")
			}
			redirect("error", "")
			return
		}

		var payload esewa.CallbackPayload
		if err := json.Unmarshal(decoded, &payload); err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "malformed gateway callback payload")
			}
			redirect("error", "")
			return
		}

		payment, err := reconcileGuarded(r.Context(), svc, guard, payload)
		if err != nil {
			if logg != nil {
				logg.Error(r.Context(), "gateway callback reconciliation failed", err)
			}
			redirect("error", payload.TransactionUUID)
			return
		}

		redirect(strings.ToLower(string(payment.Status)), payment.TransactionUUID)
	}
}

// PaymentStatus returns the stored transaction for polling clients.
func PaymentStatus(svc paymentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		transactionUUID := strings.TrimSpace(chi.URLParam(r, "transactionUuid"))
		if transactionUUID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction uuid is required"))
			return
		}

		payment, err := svc.Status(r.Context(), transactionUUID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

func reconcileGuarded(ctx context.Context, svc paymentService, guard callbackGuard, payload esewa.CallbackPayload) (*models.PendingPayment, error) {
	if guard != nil && payload.TransactionUUID != "" {
		key := guard.IdempotencyKey("payment_callback", payload.TransactionUUID)
		acquired, err := guard.SetNX(ctx, key, "processing", callbackGuardTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "callback idempotency check")
		}
		if !acquired {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "callback already processed").
				WithDetails(map[string]any{"transaction_uuid": payload.TransactionUUID})
		}

		payment, err := svc.Reconcile(ctx, payload)
		if err != nil {
			_ = guard.Del(ctx, key)
			return nil, err
		}
		return payment, nil
	}

	return svc.Reconcile(ctx, payload)
}
