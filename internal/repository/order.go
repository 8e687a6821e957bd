package repository

import (
	"context"
	"errors"

	"pipal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderLine is one requested product and quantity.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Place reserves inventory for every line, prices the order and stores it.
	// A live session attribution bumps the session's order and revenue counters.
	Place(ctx context.Context, order *models.Order, lines []OrderLine) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Place(ctx context.Context, order *models.Order, lines []OrderLine) error {
	if len(lines) == 0 {
		return models.NewValidationError("order has no items")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order.Items = order.Items[:0]
		for _, line := range lines {
			var product models.Product
			err := tx.Where("id = ? AND is_active = ?", line.ProductID, true).Take(&product).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Product", line.ProductID)
			}
			if err != nil {
				return err
			}
			if order.SellerID == uuid.Nil {
				order.SellerID = product.SellerID
			} else if order.SellerID != product.SellerID {
				return models.NewValidationError("all items of an order must come from one seller")
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND inventory_quantity >= ?", product.ID, line.Quantity).
				UpdateColumn("inventory_quantity", gorm.Expr("inventory_quantity - ?", line.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.NewConflictError("insufficient inventory for " + product.Title)
			}

			order.Items = append(order.Items, models.OrderItem{
				ProductID:    product.ID,
				ProductTitle: product.Title,
				ProductSKU:   product.SKU,
				Quantity:     line.Quantity,
				UnitPrice:    product.Price,
			})
		}

		order.PriceOrder()

		if order.LiveSessionID != nil {
			res := tx.Model(&models.LiveSession{}).
				Where("id = ? AND seller_id = ?", *order.LiveSessionID, order.SellerID).
				UpdateColumns(map[string]any{
					"total_orders":  gorm.Expr("total_orders + ?", 1),
					"total_revenue": gorm.Expr("total_revenue + ?", order.TotalAmount),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return models.NewValidationError("live session does not belong to the seller of these items")
			}
		}

		return tx.Create(order).Error
	})
	return translate(err, "Order", order.ID)
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Order", id)
	}
	return &order, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, translate(err, "Order", nil)
	}
	return orders, nil
}
