package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/enums"
)

// Booking is an appointment for a Service. The unique_booking_slot index is
// the real double-booking guarantee; the application-level check only
// produces a friendlier error for the common case.
type Booking struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ServiceID       uuid.UUID           `gorm:"column:service_id;type:uuid;not null;uniqueIndex:unique_booking_slot"`
	Name            string              `gorm:"column:name;not null"`
	MobileNumber    string              `gorm:"column:mobile_number;not null"`
	Email           string              `gorm:"column:email;not null"`
	BookingDate     string              `gorm:"column:booking_date;not null;uniqueIndex:unique_booking_slot"`
	AppointmentTime string              `gorm:"column:appointment_time;not null;uniqueIndex:unique_booking_slot"`
	Address         *string             `gorm:"column:address"`
	Notes           *string             `gorm:"column:notes"`
	Status          enums.BookingStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
