package payments

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
)

// Repository handles pending payment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.PendingPayment) error
	Update(ctx context.Context, payment *models.PendingPayment) error
	FindByTransactionUUID(ctx context.Context, transactionUUID string) (*models.PendingPayment, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.PendingPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.PendingPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Update(ctx context.Context, payment *models.PendingPayment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) FindByTransactionUUID(ctx context.Context, transactionUUID string) (*models.PendingPayment, error) {
	var payment models.PendingPayment
	if err := r.db.WithContext(ctx).
		Where("transaction_uuid = ?", transactionUUID).
		First(&payment).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.PendingPayment, error) {
	if limit <= 0 {
		limit = 250
	}
	var payments []models.PendingPayment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
