package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/internal/cart"
	"github.com/epharm-labs/epharm-backend/internal/catalog"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/metrics"
	"github.com/epharm-labs/epharm-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	Tx      txRunner
	Repo    Repository
	Catalog catalog.Repository
	Cart    cart.Repository
	Metrics *metrics.CommerceMetrics
}

// Service runs order placement and fulfillment updates.
type Service struct {
	tx      txRunner
	repo    Repository
	catalog catalog.Repository
	cart    cart.Repository
	metrics *metrics.CommerceMetrics
}

// NewService builds an orders service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Catalog == nil {
		return nil, errors.New("catalog repo is required")
	}
	if params.Cart == nil {
		return nil, errors.New("cart repo is required")
	}
	return &Service{
		tx:      params.Tx,
		repo:    params.Repo,
		catalog: params.Catalog,
		cart:    params.Cart,
		metrics: params.Metrics,
	}, nil
}

// LineInput is one requested product/quantity pair.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// PlaceInput is an explicit order placement request.
type PlaceInput struct {
	Address          string      `json:"address" validate:"required"`
	PrescriptionFile *string     `json:"prescription_file,omitempty"`
	Items            []LineInput `json:"items" validate:"required,min=1,dive"`
}

// CheckoutInput places an order from the user's live cart.
type CheckoutInput struct {
	Address          string  `json:"address" validate:"required"`
	PrescriptionFile *string `json:"prescription_file,omitempty"`
}

// Place creates an order atomically: prices are recomputed from the catalog,
// stock is decremented with a guard, and any failure rolls the whole
// placement back. Client-supplied prices are never trusted.
func (s *Service) Place(ctx context.Context, userID uuid.UUID, input PlaceInput) (*models.Order, error) {
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}

	order, err := s.placeInTx(ctx, userID, input, nil)
	if err != nil {
		s.recordOutcome(err)
		return nil, err
	}
	s.metrics.IncOrderPlaced("success")
	return order, nil
}

// Checkout drains the user's cart into an order through the same placement
// path, then clears the cart inside the same transaction.
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	if strings.TrimSpace(input.Address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	userCart, err := s.cart.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if userCart == nil || len(userCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	place := PlaceInput{
		Address:          input.Address,
		PrescriptionFile: input.PrescriptionFile,
		Items:            make([]LineInput, 0, len(userCart.Items)),
	}
	for _, item := range userCart.Items {
		place.Items = append(place.Items, LineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	if place.PrescriptionFile == nil {
		for _, item := range userCart.Items {
			if item.PrescriptionFile != nil {
				place.PrescriptionFile = item.PrescriptionFile
				break
			}
		}
	}

	order, err := s.placeInTx(ctx, userID, place, &userCart.ID)
	if err != nil {
		s.recordOutcome(err)
		return nil, err
	}
	s.metrics.IncOrderPlaced("success")
	return order, nil
}

func (s *Service) placeInTx(ctx context.Context, userID uuid.UUID, input PlaceInput, clearCartID *uuid.UUID) (*models.Order, error) {
	var placed *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		ordersRepo := s.repo.WithTx(tx)

		total := decimal.Zero
		lines := make([]models.OrderLineItem, 0, len(input.Items))

		for _, item := range input.Items {
			if item.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
			}

			product, err := catalogRepo.FindByID(ctx, item.ProductID)
			if err != nil {
				return fmt.Errorf("finding product: %w", err)
			}
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
					WithDetails(map[string]string{"product_id": item.ProductID.String()})
			}

			ok, err := catalogRepo.DecrementStock(ctx, product.ID, item.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock: %w", err)
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
					WithDetails(map[string]any{
						"product_id": product.ID.String(),
						"requested":  item.Quantity,
						"available":  product.Stock,
					})
			}

			productID := product.ID
			lines = append(lines, models.OrderLineItem{
				ProductID:   &productID,
				ProductName: product.Name,
				UnitPrice:   product.Price,
				Quantity:    item.Quantity,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		order := &models.Order{
			UserID:           userID,
			TotalPrice:       total,
			Status:           enums.OrderStatusPending,
			Address:          strings.TrimSpace(input.Address),
			PrescriptionFile: input.PrescriptionFile,
			Items:            lines,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		if clearCartID != nil {
			if err := s.cart.WithTx(tx).ClearItems(ctx, *clearCartID); err != nil {
				return fmt.Errorf("clearing cart: %w", err)
			}
		}

		placed = order
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "placing order")
	}
	return placed, nil
}

// Get returns the order when it belongs to the user.
func (s *Service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding order")
	}
	if order == nil || order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// Exists reports whether an order with the given id is on record.
func (s *Service) Exists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding order")
	}
	return order != nil, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, paging pagination.Params) ([]models.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID, paging)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return orders, nil
}

// UpdateStatus moves an order between fulfillment states. The paid state is
// owned by payment reconciliation and cannot be set here.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if !status.IsFulfillment() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status not settable through this endpoint")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finding order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	order.Status = status
	if err := s.repo.Update(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order")
	}
	return order, nil
}

// MarkPaid transitions the order to paid inside the given transaction. Used
// by payment reconciliation only.
func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("finding order: %w", err)
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	order.Status = enums.OrderStatusPaid
	if err := repo.Update(ctx, order); err != nil {
		return fmt.Errorf("updating order: %w", err)
	}
	return nil
}

func (s *Service) recordOutcome(err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
		s.metrics.IncOrderPlaced("insufficient_stock")
		return
	}
	s.metrics.IncOrderPlaced("error")
}
