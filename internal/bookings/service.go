package bookings

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/db"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/metrics"
)

const slotConstraint = "unique_booking_slot"

var timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ServiceParams groups dependencies for the bookings service.
type ServiceParams struct {
	Repo     Repository
	Services ServiceRepository
	Metrics  *metrics.CommerceMetrics
}

// Service manages appointment bookings against slot uniqueness.
type Service struct {
	repo     Repository
	services ServiceRepository
	metrics  *metrics.CommerceMetrics
}

// NewService builds a bookings service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Services == nil {
		return nil, errors.New("services repo is required")
	}
	return &Service{
		repo:     params.Repo,
		services: params.Services,
		metrics:  params.Metrics,
	}, nil
}

// CreateInput is a booking request for one service slot.
type CreateInput struct {
	ServiceID       uuid.UUID `json:"service_id" validate:"required"`
	Name            string    `json:"name" validate:"required,max=128"`
	MobileNumber    string    `json:"mobile_number" validate:"required,max=32"`
	Email           string    `json:"email" validate:"required,email"`
	BookingDate     string    `json:"booking_date" validate:"required"`
	AppointmentTime string    `json:"appointment_time" validate:"required"`
	Address         *string   `json:"address,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

// Create books the slot. The unique index on (service, date, time) is the
// authoritative guard; a racing duplicate surfaces as the same conflict
// error the pre-check produces.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Booking, error) {
	if err := s.validateSlot(input.BookingDate, input.AppointmentTime); err != nil {
		return nil, err
	}

	service, err := s.services.FindByID(ctx, input.ServiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding service")
	}
	if service == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
	}

	taken, err := s.repo.SlotTaken(ctx, input.ServiceID, input.BookingDate, input.AppointmentTime)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking slot")
	}
	if taken {
		s.metrics.IncBookingSlotConflict()
		return nil, slotConflictError(input)
	}

	booking := &models.Booking{
		ServiceID:       input.ServiceID,
		Name:            strings.TrimSpace(input.Name),
		MobileNumber:    strings.TrimSpace(input.MobileNumber),
		Email:           strings.ToLower(strings.TrimSpace(input.Email)),
		BookingDate:     input.BookingDate,
		AppointmentTime: input.AppointmentTime,
		Address:         input.Address,
		Notes:           input.Notes,
		Status:          enums.BookingStatusPending,
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		if db.IsUniqueViolation(err, slotConstraint) {
			s.metrics.IncBookingSlotConflict()
			return nil, slotConflictError(input)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating booking")
	}

	s.metrics.IncBookingCreated()
	return booking, nil
}

// Get returns one booking.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding booking")
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	return booking, nil
}

// Exists reports whether a booking with the given id is on record.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding booking")
	}
	return booking != nil, nil
}

// Confirm moves a pending booking to confirmed. Used by payment
// reconciliation and staff tooling; only pending bookings transition.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, id, enums.BookingStatusConfirmed)
}

// ConfirmInTx confirms a pending booking inside the given transaction. Used
// by payment reconciliation so the booking flips together with the payment.
func (s *Service) ConfirmInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	booking, err := repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding booking")
	}
	if booking == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if booking.Status != enums.BookingStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not pending")
	}

	booking.Status = enums.BookingStatusConfirmed
	if err := repo.Update(ctx, booking); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating booking")
	}
	return nil
}

// Cancel releases the slot.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.transition(ctx, id, enums.BookingStatusCancelled)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target enums.BookingStatus) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status != enums.BookingStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not pending").
			WithDetails(map[string]string{"status": string(booking.Status)})
	}

	booking.Status = target
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating booking")
	}
	return booking, nil
}

// ListByEmail returns the bookings registered under the given email.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	bookings, err := s.repo.ListByEmail(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing bookings")
	}
	return bookings, nil
}

// ListServices returns the bookable offerings.
func (s *Service) ListServices(ctx context.Context) ([]models.Service, error) {
	services, err := s.services.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing services")
	}
	return services, nil
}

// GetService returns one bookable offering.
func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	service, err := s.services.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading service")
	}
	if service == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
	}
	return service, nil
}

// CreateService adds a bookable offering.
func (s *Service) CreateService(ctx context.Context, service *models.Service) error {
	if strings.TrimSpace(service.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if err := s.services.Create(ctx, service); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "service name already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating service")
	}
	return nil
}

func (s *Service) validateSlot(bookingDate, appointmentTime string) error {
	if _, err := time.Parse("2006-01-02", bookingDate); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking_date must be YYYY-MM-DD")
	}
	if !timeRe.MatchString(appointmentTime) {
		return pkgerrors.New(pkgerrors.CodeValidation, "appointment_time must be HH:MM")
	}
	return nil
}

func slotConflictError(input CreateInput) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "slot already booked").
		WithDetails(map[string]string{
			"service_id":       input.ServiceID.String(),
			"booking_date":     input.BookingDate,
			"appointment_time": input.AppointmentTime,
		})
}
