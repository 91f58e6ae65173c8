package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/epharm-labs/epharm-backend/api/middleware"
	cartsvc "github.com/epharm-labs/epharm-backend/internal/cart"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
)

type stubCartService struct {
	view     *cartsvc.View
	added    []int
	setCalls []int
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*cartsvc.View, error) {
	return s.view, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, prescriptionFile *string) (*cartsvc.View, error) {
	s.added = append(s.added, quantity)
	return s.view, nil
}

func (s *stubCartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cartsvc.View, error) {
	s.setCalls = append(s.setCalls, quantity)
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	return s.view, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*cartsvc.View, error) {
	return s.view, nil
}

func cartRequest(t *testing.T, method, target string, body any, productID uuid.UUID, authed bool) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)

	ctx := req.Context()
	if authed {
		ctx = middleware.WithUserID(ctx, uuid.NewString())
	}
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("productId", productID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func cartView(productID uuid.UUID, quantity int) *cartsvc.View {
	price := decimal.RequireFromString("3.50")
	return &cartsvc.View{
		CartID: uuid.New(),
		Lines: []cartsvc.Line{{
			ProductID:   productID,
			ProductName: "Paracetamol 500mg",
			UnitPrice:   price,
			Quantity:    quantity,
			Subtotal:    price.Mul(decimal.NewFromInt(int64(quantity))),
		}},
		TotalPrice: price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func TestCartAddItem(t *testing.T) {
	productID := uuid.New()
	svc := &stubCartService{view: cartView(productID, 2)}
	handler := CartAddItem(svc, controllerLogger())

	t.Run("requires auth context", func(t *testing.T) {
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String(), map[string]int{"quantity": 2}, productID, false)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user context, got %d", rec.Code)
		}
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String(), map[string]int{"quantity": 0}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for zero quantity, got %d", rec.Code)
		}
		if len(svc.added) != 0 {
			t.Fatal("invalid payload must not reach the service")
		}
	})

	t.Run("adds units", func(t *testing.T) {
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String(), map[string]int{"quantity": 2}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(svc.added) != 1 || svc.added[0] != 2 {
			t.Fatalf("expected one add of 2 units, got %v", svc.added)
		}
	})

	t.Run("omitted quantity defaults to one", func(t *testing.T) {
		svc := &stubCartService{view: cartView(productID, 1)}
		handler := CartAddItem(svc, controllerLogger())
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String(), map[string]any{}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(svc.added) != 1 || svc.added[0] != 1 {
			t.Fatalf("expected one add of a single unit, got %v", svc.added)
		}
	})
}

func TestCartAdjustQuantity(t *testing.T) {
	productID := uuid.New()

	t.Run("increase steps up by one", func(t *testing.T) {
		svc := &stubCartService{view: cartView(productID, 2)}
		handler := CartAdjustQuantity(svc, controllerLogger())
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String()+"/quantity", map[string]string{"action": "increase"}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(svc.setCalls) != 1 || svc.setCalls[0] != 3 {
			t.Fatalf("expected SetQuantity(3), got %v", svc.setCalls)
		}
	})

	t.Run("decrease below one rejected", func(t *testing.T) {
		svc := &stubCartService{view: cartView(productID, 1)}
		handler := CartAdjustQuantity(svc, controllerLogger())
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String()+"/quantity", map[string]string{"action": "decrease"}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 when stepping below one, got %d", rec.Code)
		}
	})

	t.Run("unknown line", func(t *testing.T) {
		svc := &stubCartService{view: &cartsvc.View{Lines: []cartsvc.Line{}, TotalPrice: decimal.Zero}}
		handler := CartAdjustQuantity(svc, controllerLogger())
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String()+"/quantity", map[string]string{"action": "increase"}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for a line not in the cart, got %d", rec.Code)
		}
	})

	t.Run("bogus action", func(t *testing.T) {
		svc := &stubCartService{view: cartView(productID, 2)}
		handler := CartAdjustQuantity(svc, controllerLogger())
		req := cartRequest(t, http.MethodPost, "/api/v1/cart/items/"+productID.String()+"/quantity", map[string]string{"action": "double"}, productID, true)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
		}
	})
}
