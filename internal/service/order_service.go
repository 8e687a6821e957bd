package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pipal/internal/models"
	"pipal/internal/observability"
	"pipal/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const maxOrderLines = 50

// OrderService places and reads orders.
type OrderService struct {
	orders repository.OrderRepository
}

// OrderItemInput is one requested line.
type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput describes a checkout.
type PlaceOrderInput struct {
	BuyerID         uuid.UUID
	Items           []OrderItemInput
	LiveSessionID   *uuid.UUID
	ShippingAddress models.RawJSON
}

func NewOrderService(orders repository.OrderRepository) *OrderService {
	return &OrderService{orders: orders}
}

// Place validates the cart, merges repeated products and stores the order.
func (s *OrderService) Place(ctx context.Context, in PlaceOrderInput) (order *models.Order, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "OrderService", "Place",
		attribute.Int("order.lines", len(in.Items)),
	)
	defer func() { observability.EndSpan(span, err) }()

	lines, err := mergeOrderLines(in.Items)
	if err != nil {
		return nil, err
	}

	order = &models.Order{
		OrderNumber:     newOrderNumber(time.Now()),
		BuyerID:         in.BuyerID,
		LiveSessionID:   in.LiveSessionID,
		Status:          models.OrderPending,
		PaymentStatus:   "pending",
		ShippingAddress: in.ShippingAddress,
	}
	if err = s.orders.Place(ctx, order, lines); err != nil {
		return nil, err
	}
	return order, nil
}

func mergeOrderLines(items []OrderItemInput) ([]repository.OrderLine, error) {
	if len(items) == 0 {
		return nil, models.NewValidationError("Order must contain at least one item")
	}
	if len(items) > maxOrderLines {
		return nil, models.NewValidationError(fmt.Sprintf("Order may contain at most %d items", maxOrderLines))
	}

	index := make(map[uuid.UUID]int, len(items))
	lines := make([]repository.OrderLine, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, models.NewValidationError("productId is required")
		}
		if item.Quantity < 1 {
			return nil, models.NewValidationError("quantity must be at least 1")
		}
		if i, ok := index[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, repository.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

// newOrderNumber formats ORD-<unix ms>-<6 chars>.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// Get returns an order visible to viewerID, its buyer or seller.
func (s *OrderService) Get(ctx context.Context, id, viewerID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != viewerID && order.SellerID != viewerID {
		return nil, models.NewNotFoundError("Order", id)
	}
	return order, nil
}

// ListMine returns the buyer's orders, newest first.
func (s *OrderService) ListMine(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	orders, err := s.orders.ListByBuyer(ctx, buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
