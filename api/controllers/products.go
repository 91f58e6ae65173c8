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
	catalogsvc "github.com/epharm-labs/epharm-backend/internal/catalog"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/epharm-labs/epharm-backend/pkg/pagination"
)

type catalogService interface {
	List(ctx context.Context, input catalogsvc.ListInput) (*catalogsvc.ListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
}

// ProductList serves the searchable, filterable catalog page.
func ProductList(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
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

		result, err := svc.List(r.Context(), catalogsvc.ListInput{
			Search:   r.URL.Query().Get("search"),
			Category: r.URL.Query().Get("category"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ProductDetail serves one catalog listing.
func ProductDetail(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	Name                 string  `json:"name" validate:"required,max=255"`
	GenericName          *string `json:"generic_name,omitempty"`
	Category             string  `json:"category" validate:"required"`
	Description          *string `json:"description,omitempty"`
	Price                string  `json:"price" validate:"required"`
	Stock                int     `json:"stock" validate:"min=0"`
	PrescriptionRequired bool    `json:"prescription_required"`
	ImageURL             *string `json:"image_url,omitempty"`
}

// ProductCreate adds a listing to the catalog.
func ProductCreate(svc catalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(strings.TrimSpace(payload.Price))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		product := &models.Product{
			Name:                 strings.TrimSpace(payload.Name),
			GenericName:          payload.GenericName,
			Category:             enums.ProductCategory(strings.TrimSpace(payload.Category)),
			Description:          payload.Description,
			Price:                price,
			Stock:                payload.Stock,
			PrescriptionRequired: payload.PrescriptionRequired,
			ImageURL:             payload.ImageURL,
		}
		if err := svc.Create(r.Context(), product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}
