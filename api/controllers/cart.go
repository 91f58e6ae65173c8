package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/epharm-labs/epharm-backend/api/middleware"
	"github.com/epharm-labs/epharm-backend/api/responses"
	"github.com/epharm-labs/epharm-backend/api/validators"
	cartsvc "github.com/epharm-labs/epharm-backend/internal/cart"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

type cartService interface {
	Get(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, prescriptionFile *string) (*cartsvc.View, error)
	SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.View, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cartsvc.View, error)
}

func cartIdentity(r *http.Request, logg *logger.Logger, w http.ResponseWriter) (uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
		return uuid.Nil, false
	}
	return uid, true
}

func cartProductID(r *http.Request, logg *logger.Logger, w http.ResponseWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "productId"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
		return uuid.Nil, false
	}
	return id, true
}

// CartFetch renders the authenticated user's cart.
func CartFetch(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}

		view, err := svc.Get(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type cartAddRequest struct {
	// Absent means one unit; explicit values below one are rejected.
	Quantity         *int    `json:"quantity"`
	PrescriptionFile *string `json:"prescription_file,omitempty"`
}

// CartAddItem puts units of a product into the cart, folding repeats.
func CartAddItem(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}
		pid, ok := cartProductID(r, logg, w)
		if !ok {
			return
		}

		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity := 1
		if payload.Quantity != nil {
			if *payload.Quantity < 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1"))
				return
			}
			quantity = *payload.Quantity
		}

		view, err := svc.AddItem(r.Context(), uid, pid, quantity, payload.PrescriptionFile)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type cartQuantityRequest struct {
	Action string `json:"action" validate:"required,oneof=increase decrease"`
}

// CartAdjustQuantity steps a line's quantity up or down by one. Stepping
// below one is rejected; lines leave the cart only through removal.
func CartAdjustQuantity(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}
		pid, ok := cartProductID(r, logg, w)
		if !ok {
			return
		}

		var payload cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), uid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		current := 0
		found := false
		for _, line := range view.Lines {
			if line.ProductID == pid {
				current = line.Quantity
				found = true
				break
			}
		}
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
			return
		}

		next := current + 1
		if payload.Action == "decrease" {
			next = current - 1
		}

		view, err = svc.SetQuantity(r.Context(), uid, pid, next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem deletes a line. Removing an absent line is a no-op.
func CartRemoveItem(svc cartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}
		pid, ok := cartProductID(r, logg, w)
		if !ok {
			return
		}

		view, err := svc.RemoveItem(r.Context(), uid, pid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
