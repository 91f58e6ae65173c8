package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/epharm-labs/epharm-backend/api/responses"
	"github.com/epharm-labs/epharm-backend/api/validators"
	ordersvc "github.com/epharm-labs/epharm-backend/internal/orders"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/epharm-labs/epharm-backend/pkg/pagination"
)

type orderService interface {
	Place(ctx context.Context, userID uuid.UUID, input ordersvc.PlaceInput) (*models.Order, error)
	Checkout(ctx context.Context, userID uuid.UUID, input ordersvc.CheckoutInput) (*models.Order, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, paging pagination.Params) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

func orderID(r *http.Request, logg *logger.Logger, w http.ResponseWriter) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
		return uuid.Nil, false
	}
	return id, true
}

// OrderPlace creates an order from an explicit item snapshot. Pricing and
// stock are settled server-side in one transaction.
func OrderPlace(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}

		var payload ordersvc.PlaceInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Place(r.Context(), uid, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderCheckout places an order from the user's live cart and drains it.
func OrderCheckout(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}

		var payload ordersvc.CheckoutInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), uid, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderDetail returns one of the caller's orders with its line items.
func OrderDetail(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}
		oid, ok := orderID(r, logg, w)
		if !ok {
			return
		}

		order, err := svc.Get(r.Context(), uid, oid)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderList pages through the caller's order history, newest first.
func OrderList(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		uid, ok := cartIdentity(r, logg, w)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListByUser(r.Context(), uid, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderUpdateStatus moves an order along the fulfillment track. The paid
// state is owned by payment reconciliation and cannot be set here.
func OrderUpdateStatus(svc orderService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		oid, ok := orderID(r, logg, w)
		if !ok {
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.OrderStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
		order, err := svc.UpdateStatus(r.Context(), oid, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
