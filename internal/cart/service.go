package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/epharm-labs/epharm-backend/internal/catalog"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
)

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	Repo    Repository
	Catalog catalog.Repository
}

// Service manages the per-user cart.
type Service struct {
	repo    Repository
	catalog catalog.Repository
}

// NewService builds a cart service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog repo is required")
	}
	return &Service{repo: params.Repo, catalog: params.Catalog}, nil
}

// Line is one cart row joined with its live product data.
type Line struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	PrescriptionFile *string         `json:"prescription_file,omitempty"`
}

// View is the rendered cart with server-computed totals.
type View struct {
	CartID     uuid.UUID       `json:"cart_id"`
	Lines      []Line          `json:"lines"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Get renders the user's cart. Users without a cart see an empty one.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if cart == nil {
		return &View{Lines: []Line{}, TotalPrice: decimal.Zero}, nil
	}
	return s.render(ctx, cart)
}

// AddItem puts quantity units of the product into the cart, creating the
// cart lazily and folding repeated adds into the existing line. A
// prescription reference, when given, sticks to the line.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, prescriptionFile *string) (*View, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	cart, err := s.repo.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}

	if item == nil {
		item = &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity, PrescriptionFile: prescriptionFile}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart item")
		}
	} else {
		item.Quantity += quantity
		if prescriptionFile != nil {
			item.PrescriptionFile = prescriptionFile
		}
		if err := s.repo.UpdateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}
	}

	return s.Get(ctx, userID)
}

// SetQuantity replaces the line's quantity. Quantities below 1 are rejected;
// removal goes through RemoveItem instead.
func (s *Service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}

	item.Quantity = quantity
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
	}

	return s.Get(ctx, userID)
}

// RemoveItem drops the product from the cart. Removing an absent product is
// a no-op so retries stay safe.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if cart == nil {
		return &View{Lines: []Line{}, TotalPrice: decimal.Zero}, nil
	}

	if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart item")
	}

	return s.Get(ctx, userID)
}

func (s *Service) render(ctx context.Context, cart *models.Cart) (*View, error) {
	view := &View{CartID: cart.ID, Lines: make([]Line, 0, len(cart.Items)), TotalPrice: decimal.Zero}

	for _, item := range cart.Items {
		product, err := s.catalog.FindByID(ctx, item.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding product")
		}
		if product == nil {
			// product deleted from the catalog after it was carted
			continue
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		view.Lines = append(view.Lines, Line{
			ProductID:        product.ID,
			ProductName:      product.Name,
			UnitPrice:        product.Price,
			Quantity:         item.Quantity,
			Subtotal:         subtotal,
			PrescriptionFile: item.PrescriptionFile,
		})
		view.TotalPrice = view.TotalPrice.Add(subtotal)
	}
	return view, nil
}
