package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/epharm-labs/epharm-backend/api/responses"
	"github.com/epharm-labs/epharm-backend/api/validators"
	bookingsvc "github.com/epharm-labs/epharm-backend/internal/bookings"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

type bookingService interface {
	Create(ctx context.Context, input bookingsvc.CreateInput) (*models.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Confirm(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]models.Booking, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (*models.Service, error)
	CreateService(ctx context.Context, service *models.Service) error
}

func bookingID(r *http.Request, logg *logger.Logger, w http.ResponseWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingId"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
		return uuid.Nil, false
	}
	return id, true
}

// BookingCreate reserves an appointment slot. The slot is exclusive; a
// second booking for the same service, date and time conflicts.
func BookingCreate(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		var payload bookingsvc.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, booking)
	}
}

// BookingDetail returns one booking.
func BookingDetail(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		id, ok := bookingID(r, logg, w)
		if !ok {
			return
		}

		booking, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// BookingConfirm moves a pending booking to confirmed.
func BookingConfirm(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		id, ok := bookingID(r, logg, w)
		if !ok {
			return
		}

		booking, err := svc.Confirm(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// BookingCancel releases a pending booking's slot.
func BookingCancel(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}
		id, ok := bookingID(r, logg, w)
		if !ok {
			return
		}

		booking, err := svc.Cancel(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type bookingStatusRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// BookingStatus lists the bookings held under an email address.
func BookingStatus(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		var payload bookingStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookings, err := svc.ListByEmail(r.Context(), payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookings)
	}
}

// ServiceList returns the bookable offerings.
func ServiceList(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		services, err := svc.ListServices(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, services)
	}
}

// ServiceDetail returns one bookable offering.
func ServiceDetail(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "serviceId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service id"))
			return
		}

		service, err := svc.GetService(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, service)
	}
}

type createServiceRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Description *string `json:"description,omitempty"`
	Price       *string `json:"price,omitempty"`
}

// ServiceCreate adds a bookable offering.
func ServiceCreate(svc bookingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "booking service unavailable"))
			return
		}

		var payload createServiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		service := &models.Service{
			Name:        strings.TrimSpace(payload.Name),
			Description: payload.Description,
		}
		if payload.Price != nil {
			price, err := decimal.NewFromString(strings.TrimSpace(*payload.Price))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
				return
			}
			service.Price = &price
		}

		if err := svc.CreateService(r.Context(), service); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, service)
	}
}
