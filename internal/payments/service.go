package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/db"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/esewa"
	"github.com/epharm-labs/epharm-backend/pkg/metrics"
)

const transactionConstraint = "unique_transaction_uuid"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderMarker interface {
	Exists(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type bookingConfirmer interface {
	Exists(ctx context.Context, bookingID uuid.UUID) (bool, error)
	ConfirmInTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) error
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Tx       txRunner
	Repo     Repository
	Signer   *esewa.Signer
	Orders   orderMarker
	Bookings bookingConfirmer
	Metrics  *metrics.CommerceMetrics
}

// Service drives gateway transactions: initiation and callback reconciliation.
type Service struct {
	tx       txRunner
	repo     Repository
	signer   *esewa.Signer
	orders   orderMarker
	bookings bookingConfirmer
	metrics  *metrics.CommerceMetrics
}

// NewService builds a payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Signer == nil {
		return nil, errors.New("signer is required")
	}
	return &Service{
		tx:       params.Tx,
		repo:     params.Repo,
		signer:   params.Signer,
		orders:   params.Orders,
		bookings: params.Bookings,
		metrics:  params.Metrics,
	}, nil
}

// InitiateInput starts a gateway transaction for an order or a booking.
type InitiateInput struct {
	TransactionUUID string          `json:"transaction_uuid" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	OrderID         *uuid.UUID      `json:"order_id,omitempty"`
	BookingID       *uuid.UUID      `json:"booking_id,omitempty"`
	UserID          *uuid.UUID      `json:"-"`
}

// InitiateResult carries the stored transaction plus the signed redirect fields.
type InitiateResult struct {
	Payment *models.PendingPayment `json:"payment"`
	Fields  esewa.RequestFields    `json:"fields"`
}

// Initiate records a PENDING transaction and returns the signed field set
// the client forwards to the gateway. Transaction UUIDs are single-use.
func (s *Service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	transactionUUID := strings.TrimSpace(input.TransactionUUID)
	if transactionUUID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction_uuid is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.TaxAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tax_amount cannot be negative")
	}
	if input.OrderID == nil && input.BookingID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id or booking_id is required")
	}
	if input.OrderID != nil && s.orders != nil {
		exists, err := s.orders.Exists(ctx, *input.OrderID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
	}
	if input.BookingID != nil && s.bookings != nil {
		exists, err := s.bookings.Exists(ctx, *input.BookingID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
	}

	payment := &models.PendingPayment{
		TransactionUUID: transactionUUID,
		Amount:          input.Amount,
		TaxAmount:       input.TaxAmount,
		TotalAmount:     input.Amount.Add(input.TaxAmount),
		Status:          enums.PaymentStatusPending,
		OrderID:         input.OrderID,
		BookingID:       input.BookingID,
		UserID:          input.UserID,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, transactionConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "transaction_uuid already used")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating pending payment")
	}

	s.metrics.IncPaymentInitiated()
	return &InitiateResult{
		Payment: payment,
		Fields:  s.signer.BuildRequest(input.Amount, input.TaxAmount, transactionUUID),
	}, nil
}

// Reconcile settles a callback: verify the signature, load the transaction,
// refuse replays against terminal states, then atomically persist the new
// status and propagate paid outcomes to the linked order or booking.
func (s *Service) Reconcile(ctx context.Context, payload esewa.CallbackPayload) (*models.PendingPayment, error) {
	if strings.TrimSpace(payload.TransactionUUID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction_uuid is required")
	}
	if err := s.signer.VerifyCallback(payload); err != nil {
		return nil, err
	}

	status := normalizeStatus(payload.Status)
	if !status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported callback status").
			WithDetails(map[string]string{"status": payload.Status})
	}

	var settled *models.PendingPayment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payment, err := repo.FindByTransactionUUID(ctx, payload.TransactionUUID)
		if err != nil {
			return fmt.Errorf("finding transaction: %w", err)
		}
		if payment == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unknown transaction")
		}
		if payment.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction already settled").
				WithDetails(map[string]string{"status": string(payment.Status)})
		}

		payment.Status = status
		if code := strings.TrimSpace(payload.TransactionCode); code != "" {
			payment.TransactionCode = &code
		}
		if err := repo.Update(ctx, payment); err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}

		if status.IsPaid() {
			if payment.OrderID != nil && s.orders != nil {
				if err := s.orders.MarkPaid(ctx, tx, *payment.OrderID); err != nil {
					return err
				}
			}
			if payment.BookingID != nil && s.bookings != nil {
				if err := s.bookings.ConfirmInTx(ctx, tx, *payment.BookingID); err != nil {
					return err
				}
			}
		}

		settled = payment
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reconciling payment")
	}

	s.metrics.IncPaymentReconciled(string(status))
	return settled, nil
}

// Status returns the transaction state for polling clients.
func (s *Service) Status(ctx context.Context, transactionUUID string) (*models.PendingPayment, error) {
	payment, err := s.repo.FindByTransactionUUID(ctx, strings.TrimSpace(transactionUUID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding transaction")
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown transaction")
	}
	return payment, nil
}

// ExpireStalePending fails PENDING transactions older than the TTL. Returns
// how many rows were flipped.
func (s *Service) ExpireStalePending(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	stale, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("listing stale payments: %w", err)
	}

	expired := 0
	var errs []error
	for i := range stale {
		payment := stale[i]
		payment.Status = enums.PaymentStatusFailed
		if err := s.repo.Update(ctx, &payment); err != nil {
			errs = append(errs, fmt.Errorf("expiring %s: %w", payment.TransactionUUID, err))
			continue
		}
		s.metrics.IncPaymentReconciled(string(enums.PaymentStatusFailed))
		expired++
	}
	return expired, multierr.Combine(errs...)
}

func normalizeStatus(raw string) enums.PaymentStatus {
	return enums.PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
}
