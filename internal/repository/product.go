package repository

import (
	"context"
	"strings"

	"pipal/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// SetInventory overwrites the stock level of a product owned by sellerID.
	SetInventory(ctx context.Context, id, sellerID uuid.UUID, quantity int) (*models.Product, error)
	// List returns active products of active sellers matching filter.
	List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*models.Product, error)
}

// Product list orderings.
const (
	ProductSortNewest    = "newest"
	ProductSortPriceLow  = "price_low"
	ProductSortPriceHigh = "price_high"
)

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	SellerID *uuid.UUID
	Search   string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("a product with this SKU already exists")
		}
		return translate(err, "Product", product.ID)
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, "Product", id)
	}
	return &product, nil
}

func (r *productRepository) SetInventory(ctx context.Context, id, sellerID uuid.UUID, quantity int) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND seller_id = ?", id, sellerID).
			Update("inventory_quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotOwnerError("Product", id)
		}
		return tx.First(&product, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err, "Product", id)
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, limit, offset int) ([]*models.Product, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN users ON users.id = products.seller_id AND users.is_active = ?", true).
		Where("products.is_active = ?", true).
		Preload("Seller")

	if filter.SellerID != nil {
		q = q.Where("products.seller_id = ?", *filter.SellerID)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		pattern := "%" + term + "%"
		q = q.Where("(LOWER(products.title) LIKE ? OR LOWER(products.description) LIKE ?)", pattern, pattern)
	}
	if filter.MinPrice != nil {
		q = q.Where("products.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("products.price <= ?", *filter.MaxPrice)
	}

	switch filter.SortBy {
	case ProductSortPriceLow:
		q = q.Order("products.price ASC")
	case ProductSortPriceHigh:
		q = q.Order("products.price DESC")
	default:
		q = q.Order("products.created_at DESC")
	}

	var products []*models.Product
	if err := q.Limit(clampLimit(limit)).Offset(offset).Find(&products).Error; err != nil {
		return nil, translate(err, "Product", nil)
	}
	return products, nil
}
