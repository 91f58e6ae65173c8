package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/internal/cart"
	"github.com/epharm-labs/epharm-backend/internal/catalog"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderLineItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Tx:      gormTxRunner{db: db},
		Repo:    NewRepository(db),
		Catalog: catalog.NewRepository(db),
		Cart:    cart.NewRepository(db),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Category: enums.ProductCategoryOTC,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Order{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func productStock(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestPlaceRecomputesPricingAndDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	paracetamol := seedProduct(t, db, "Paracetamol 500mg", "3.50", 10)
	ibuprofen := seedProduct(t, db, "Ibuprofen 200mg", "4.25", 5)

	order, err := svc.Place(ctx, userID, PlaceInput{
		Address: "42 Hill Road, Kathmandu",
		Items: []LineInput{
			{ProductID: paracetamol.ID, Quantity: 2},
			{ProductID: ibuprofen.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	if !order.TotalPrice.Equal(decimal.RequireFromString("11.25")) {
		t.Fatalf("expected server-computed total 11.25, got %s", order.TotalPrice)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(order.Items))
	}
	if !order.Items[0].UnitPrice.Equal(decimal.RequireFromString("3.50")) {
		t.Fatalf("line item should snapshot catalog price, got %s", order.Items[0].UnitPrice)
	}

	if got := productStock(t, db, paracetamol.ID); got != 8 {
		t.Fatalf("expected paracetamol stock 8, got %d", got)
	}
	if got := productStock(t, db, ibuprofen.ID); got != 4 {
		t.Fatalf("expected ibuprofen stock 4, got %d", got)
	}
}

func TestPlaceInsufficientStockRollsBackEverything(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	first := seedProduct(t, db, "Paracetamol 500mg", "3.50", 10)
	second := seedProduct(t, db, "Amoxicillin 250mg", "8.00", 1)

	_, err := svc.Place(ctx, uuid.New(), PlaceInput{
		Address: "42 Hill Road",
		Items: []LineInput{
			{ProductID: first.ID, Quantity: 3},
			{ProductID: second.ID, Quantity: 2},
		},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeInsufficientStock, err)
	}

	// the failed second line must undo the first line's decrement
	if got := productStock(t, db, first.ID); got != 10 {
		t.Fatalf("expected first product stock restored to 10, got %d", got)
	}
	if got := productStock(t, db, second.ID); got != 1 {
		t.Fatalf("expected second product stock unchanged at 1, got %d", got)
	}
	if n := countOrders(t, db); n != 0 {
		t.Fatalf("expected no order rows, got %d", n)
	}
}

func TestPlaceUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Place(context.Background(), uuid.New(), PlaceInput{
		Address: "42 Hill Road",
		Items:   []LineInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeNotFound, err)
	}
	if n := countOrders(t, db); n != 0 {
		t.Fatalf("expected no order rows, got %d", n)
	}
}

func TestCheckoutDrainsCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, db, "Vitamin C 1000mg", "6.25", 20)

	userCart := &models.Cart{UserID: userID}
	if err := db.Create(userCart).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	if err := db.Create(&models.CartItem{CartID: userCart.ID, ProductID: product.ID, Quantity: 4}).Error; err != nil {
		t.Fatalf("seed cart item: %v", err)
	}

	order, err := svc.Checkout(ctx, userID, CheckoutInput{Address: "42 Hill Road"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if !order.TotalPrice.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalPrice)
	}

	var remaining int64
	if err := db.Model(&models.CartItem{}).Where("cart_id = ?", userCart.ID).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cart cleared, %d items remain", remaining)
	}
	if got := productStock(t, db, product.ID); got != 16 {
		t.Fatalf("expected stock 16, got %d", got)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))

	_, err := svc.Checkout(context.Background(), uuid.New(), CheckoutInput{Address: "42 Hill Road"})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestUpdateStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	product := seedProduct(t, db, "Paracetamol 500mg", "3.50", 10)
	order, err := svc.Place(ctx, userID, PlaceInput{
		Address: "42 Hill Road",
		Items:   []LineInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", updated.Status)
	}

	// paid is reserved for payment reconciliation
	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatus("bogus"))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeValidation, err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := uuid.New()

	product := seedProduct(t, db, "Paracetamol 500mg", "3.50", 10)
	order, err := svc.Place(ctx, owner, PlaceInput{
		Address: "42 Hill Road",
		Items:   []LineInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	if _, err := svc.Get(ctx, owner, order.ID); err != nil {
		t.Fatalf("Get as owner: %v", err)
	}

	_, err = svc.Get(ctx, uuid.New(), order.ID)
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected %s for foreign user, got %v", pkgerrors.CodeNotFound, err)
	}
}
