package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/enums"
)

// Order is a placed purchase. The total is always server-computed and line
// items are immutable snapshots, so historical orders stay stable against
// later catalog changes.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	TotalPrice       decimal.Decimal   `gorm:"column:total_price;type:numeric(10,2);not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Address          string            `gorm:"column:address;type:text;not null"`
	PrescriptionFile *string           `gorm:"column:prescription_file"`
	Items            []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
