package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	"github.com/epharm-labs/epharm-backend/pkg/enums"
	"github.com/epharm-labs/epharm-backend/pkg/pagination"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	order := &models.Order{
		UserID:     userID,
		TotalPrice: decimal.RequireFromString("17.25"),
		Status:     enums.OrderStatusPending,
		Address:    "12 Lakeside, Pokhara",
		Items: []models.OrderLineItem{
			{ProductName: "Ibuprofen 200mg", UnitPrice: decimal.RequireFromString("5.75"), Quantity: 3},
		},
	}
	require.NoError(t, repo.Create(ctx, order))
	require.NotEqual(t, uuid.Nil, order.ID)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, userID, found.UserID)
	assert.True(t, found.TotalPrice.Equal(decimal.RequireFromString("17.25")))
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Ibuprofen 200mg", found.Items[0].ProductName)
	assert.Equal(t, 3, found.Items[0].Quantity)
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositoryListByUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Order{
			UserID:     userID,
			TotalPrice: decimal.NewFromInt(int64(i + 1)),
			Status:     enums.OrderStatusPending,
			Address:    "12 Lakeside, Pokhara",
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Order{
		UserID:     uuid.New(),
		TotalPrice: decimal.NewFromInt(99),
		Status:     enums.OrderStatusPending,
		Address:    "other user",
	}))

	orders, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	for _, order := range orders {
		assert.Equal(t, userID, order.UserID)
	}

	rest, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
