package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/enums"
)

// PendingPayment tracks one gateway transaction attempt, keyed by the
// caller-supplied transaction UUID. Rows are created at initiation only;
// callbacks never create them. TotalAmount always equals Amount + TaxAmount.
type PendingPayment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	TransactionUUID string              `gorm:"column:transaction_uuid;not null;uniqueIndex:unique_transaction_uuid"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	TaxAmount       decimal.Decimal     `gorm:"column:tax_amount;type:numeric(10,2);not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Status          enums.PaymentStatus `gorm:"column:status;not null;default:'PENDING'"`
	TransactionCode *string             `gorm:"column:transaction_code"`
	OrderID         *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	BookingID       *uuid.UUID          `gorm:"column:booking_id;type:uuid"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PendingPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
