package repository

import (
	"context"
	"testing"

	"pipal/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createProduct(t *testing.T, db *gorm.DB, seller *models.User, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:          seller.ID,
		Title:             "Linen shirt",
		SKU:               "SKU-" + uuid.NewString()[:8],
		Price:             price,
		InventoryQuantity: stock,
		IsActive:          true,
	}
	require.NoError(t, NewProductRepository(db).Create(context.Background(), product))
	return product
}

func TestOrderRepository_PlaceWithLiveSession(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	session, seller := newSession(t, db)
	buyer := createUser(t, db, models.RoleBuyer)
	shirt := createProduct(t, db, seller, 25.00, 5)

	order := &models.Order{OrderNumber: "ORD-1-ABCDEF", BuyerID: buyer.ID, LiveSessionID: &session.ID}
	require.NoError(t, repo.Place(ctx, order, []OrderLine{{ProductID: shirt.ID, Quantity: 2}}))

	assert.Equal(t, seller.ID, order.SellerID)
	assert.InDelta(t, 50.00, order.Subtotal, 0.001)
	assert.InDelta(t, 4.00, order.TaxAmount, 0.001)
	assert.InDelta(t, 64.00, order.TotalAmount, 0.001)

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Linen shirt", stored.Items[0].ProductTitle)

	product, err := NewProductRepository(db).GetByID(ctx, shirt.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, product.InventoryQuantity)

	live, err := NewLiveSessionRepository(db).GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, live.TotalOrders)
	assert.InDelta(t, 64.00, live.TotalRevenue, 0.001)

	mine, err := repo.ListByBuyer(ctx, buyer.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestOrderRepository_PlaceRollsBackOnShortage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	seller := createUser(t, db, models.RoleSeller)
	buyer := createUser(t, db, models.RoleBuyer)
	plenty := createProduct(t, db, seller, 10, 10)
	scarce := createProduct(t, db, seller, 10, 1)

	order := &models.Order{OrderNumber: "ORD-2-ABCDEF", BuyerID: buyer.ID}
	err := repo.Place(ctx, order, []OrderLine{
		{ProductID: plenty.ID, Quantity: 3},
		{ProductID: scarce.ID, Quantity: 2},
	})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	product, err := NewProductRepository(db).GetByID(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, product.InventoryQuantity)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOrderRepository_PlaceRejectsMixedSellers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()

	buyer := createUser(t, db, models.RoleBuyer)
	a := createProduct(t, db, createUser(t, db, models.RoleSeller), 10, 10)
	b := createProduct(t, db, createUser(t, db, models.RoleSeller), 10, 10)

	err := repo.Place(ctx, &models.Order{OrderNumber: "ORD-3-ABCDEF", BuyerID: buyer.ID}, []OrderLine{
		{ProductID: a.ID, Quantity: 1},
		{ProductID: b.ID, Quantity: 1},
	})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	err = repo.Place(ctx, &models.Order{OrderNumber: "ORD-4-ABCDEF", BuyerID: buyer.ID}, []OrderLine{
		{ProductID: uuid.New(), Quantity: 1},
	})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestProductRepository_SetInventory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	seller := createUser(t, db, models.RoleSeller)
	product := createProduct(t, db, seller, 10, 1)

	updated, err := repo.SetInventory(ctx, product.ID, seller.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, updated.InventoryQuantity)

	_, err = repo.SetInventory(ctx, product.ID, uuid.New(), 0)
	assert.True(t, models.HasCode(err, models.CodeNotOwner))

	dup := &models.Product{SellerID: seller.ID, Title: "Copy", SKU: product.SKU, Price: 1}
	assert.True(t, models.HasCode(repo.Create(ctx, dup), models.CodeConflict))
}
