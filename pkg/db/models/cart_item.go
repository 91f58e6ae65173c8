package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one product line inside a cart. A (cart, product) pair is
// unique; repeated adds increment the quantity instead of duplicating lines.
type CartItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID           uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_product"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_product"`
	Quantity         int       `gorm:"column:quantity;not null;default:1"`
	PrescriptionFile *string   `gorm:"column:prescription_file"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
