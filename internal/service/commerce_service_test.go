package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_PlaceMergesLines(t *testing.T) {
	var gotLines []repository.OrderLine
	var gotOrder *models.Order
	repo := &orderRepoStub{
		placeFn: func(_ context.Context, o *models.Order, lines []repository.OrderLine) error {
			gotOrder, gotLines = o, lines
			return nil
		},
	}
	svc := NewOrderService(repo)
	a, b := uuid.New(), uuid.New()
	sessionID := uuid.New()

	order, err := svc.Place(context.Background(), PlaceOrderInput{
		BuyerID:       uuid.New(),
		LiveSessionID: &sessionID,
		Items: []OrderItemInput{
			{ProductID: a, Quantity: 1},
			{ProductID: b, Quantity: 2},
			{ProductID: a, Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.Same(t, gotOrder, order)
	assert.Equal(t, []repository.OrderLine{{ProductID: a, Quantity: 4}, {ProductID: b, Quantity: 2}}, gotLines)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, &sessionID, order.LiveSessionID)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d+-[0-9A-F]{6}$`), order.OrderNumber)
}

func TestOrderService_PlaceValidation(t *testing.T) {
	svc := NewOrderService(&orderRepoStub{
		placeFn: func(context.Context, *models.Order, []repository.OrderLine) error {
			t.Fatal("repository must not be reached")
			return nil
		},
	})
	ctx := context.Background()

	cases := map[string][]OrderItemInput{
		"empty":         nil,
		"zero quantity": {{ProductID: uuid.New(), Quantity: 0}},
		"no product":    {{Quantity: 1}},
	}
	for name, items := range cases {
		_, err := svc.Place(ctx, PlaceOrderInput{BuyerID: uuid.New(), Items: items})
		assert.True(t, models.HasCode(err, models.CodeValidation), name)
	}
}

func TestNewOrderNumber(t *testing.T) {
	at := time.UnixMilli(1717243200123)
	n := newOrderNumber(at)
	assert.Regexp(t, `^ORD-1717243200123-[0-9A-F]{6}$`, n)
	assert.NotEqual(t, n, newOrderNumber(at))
}

func TestOrderService_GetVisibleToParties(t *testing.T) {
	buyer, seller := uuid.New(), uuid.New()
	order := &models.Order{ID: uuid.New(), BuyerID: buyer, SellerID: seller}
	svc := NewOrderService(&orderRepoStub{
		getByIDFn: func(context.Context, uuid.UUID) (*models.Order, error) { return order, nil },
		listByBuyerFn: func(context.Context, uuid.UUID, int, int) ([]models.Order, error) {
			return nil, nil
		},
	})
	ctx := context.Background()

	for _, viewer := range []uuid.UUID{buyer, seller} {
		got, err := svc.Get(ctx, order.ID, viewer)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
	}
	_, err := svc.Get(ctx, order.ID, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	mine, err := svc.ListMine(ctx, buyer, 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, mine)
	assert.Empty(t, mine)
}

func TestProductService_CreateAndInventory(t *testing.T) {
	pub := &recordingPublisher{}
	seller := uuid.New()
	repo := &productRepoStub{
		createFn: func(context.Context, *models.Product) error { return nil },
		setInventoryFn: func(_ context.Context, id, sellerID uuid.UUID, qty int) (*models.Product, error) {
			if sellerID != seller {
				return nil, models.NewNotOwnerError("Product", id)
			}
			return &models.Product{ID: id, SellerID: sellerID, InventoryQuantity: qty}, nil
		},
	}
	svc := NewProductService(repo, pub)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{SellerID: seller, Title: " "})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	_, err = svc.Create(ctx, CreateProductInput{SellerID: seller, Title: "Mug", Price: -1})
	assert.True(t, models.HasCode(err, models.CodeValidation))
	_, err = svc.Create(ctx, CreateProductInput{SellerID: seller, Title: "Mug", SKU: "mug_01"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	custom, err := svc.Create(ctx, CreateProductInput{SellerID: seller, Title: "Mug", SKU: " mug-01 "})
	require.NoError(t, err)
	assert.Equal(t, "MUG-01", custom.SKU)

	product, err := svc.Create(ctx, CreateProductInput{SellerID: seller, Title: "Mug", Price: 12.5, InventoryQuantity: 4})
	require.NoError(t, err)
	assert.Regexp(t, `^SKU-[0-9A-F]{8}$`, product.SKU)
	assert.True(t, product.IsActive)

	_, err = svc.SetInventory(ctx, uuid.New(), seller, -1)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.SetInventory(ctx, uuid.New(), uuid.New(), 3)
	assert.True(t, models.HasCode(err, models.CodeNotOwner))
	assert.Empty(t, pub.events)

	id := uuid.New()
	updated, err := svc.SetInventory(ctx, id, seller, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.InventoryQuantity)

	events := pub.ofType(notifications.EventInventoryChanged)
	require.Len(t, events, 1)
	assert.Equal(t, notifications.GlobalTopic, events[0].Topic)
	assert.Equal(t, InventoryChangedPayload{ProductID: id, SellerID: seller, InventoryQuantity: 9}, events[0].Event.Payload)
}

func TestPostService_Create(t *testing.T) {
	owner := uuid.New()
	productID := uuid.New()
	products := &productRepoStub{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*models.Product, error) {
			if id == productID {
				return &models.Product{ID: id, SellerID: owner}, nil
			}
			return nil, models.NewNotFoundError("Product", id)
		},
	}
	svc := NewPostService(noopPostRepo(), products)
	ctx := context.Background()

	post, err := svc.Create(ctx, CreatePostInput{UserID: owner, Caption: " New mugs "})
	require.NoError(t, err)
	assert.Equal(t, models.PostTypeProduct, post.Type)
	assert.Equal(t, "New mugs", post.Caption)
	assert.True(t, post.IsActive)

	_, err = svc.Create(ctx, CreatePostInput{UserID: owner, Type: "reel"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Create(ctx, CreatePostInput{UserID: owner, ProductID: &productID})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, CreatePostInput{UserID: uuid.New(), ProductID: &productID})
	assert.True(t, models.HasCode(err, models.CodeNotOwner))

	missing := uuid.New()
	_, err = svc.Create(ctx, CreatePostInput{UserID: owner, ProductID: &missing})
	assert.True(t, models.HasCode(err, models.CodeNotOwner))

	feed, err := svc.List(ctx, 20, 0)
	require.NoError(t, err)
	assert.NotNil(t, feed)
}
