package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/enums"
)

// Product represents one catalog listing. Stock is mutated only through the
// order placement engine's guarded decrement.
type Product struct {
	ID                   uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	GenericName          *string               `gorm:"column:generic_name"`
	Name                 string                `gorm:"column:name;not null"`
	Category             enums.ProductCategory `gorm:"column:category;not null"`
	Description          *string               `gorm:"column:description"`
	Price                decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null"`
	Stock                int                   `gorm:"column:stock;not null;default:0"`
	PrescriptionRequired bool                  `gorm:"column:prescription_required;not null;default:false"`
	ImageURL             *string               `gorm:"column:image_url"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
