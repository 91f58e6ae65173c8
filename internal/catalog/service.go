package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo Repository
}

// Service exposes catalog reads and administrative writes.
type Service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// ListInput filters a product listing.
type ListInput struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// ListResult is a page of products with the unfiltered total.
type ListResult struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// List returns products matching the search term and category filter.
func (s *Service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	query := ListQuery{
		Search: strings.TrimSpace(input.Search),
		Paging: pagination.Params{Limit: input.Limit, Offset: input.Offset},
	}

	if raw := strings.TrimSpace(input.Category); raw != "" {
		category := enums.ProductCategory(raw)
		if !category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product category").
				WithDetails(map[string]string{"category": raw})
		}
		query.Category = &category
	}

	products, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}
	return &ListResult{Products: products, Total: total}, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// Create adds a product to the catalog.
func (s *Service) Create(ctx context.Context, product *models.Product) error {
	if !product.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown product category")
	}
	if product.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if product.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return nil
}
