package service

import (
	"context"
	"strings"

	"pipal/internal/models"
	"pipal/internal/notifications"
	"pipal/internal/repository"
	"pipal/internal/validation"

	"github.com/google/uuid"
)

// ProductService manages seller products.
type ProductService struct {
	products  repository.ProductRepository
	publisher Publisher
}

// CreateProductInput describes a new product.
type CreateProductInput struct {
	SellerID          uuid.UUID
	Title             string
	Description       string
	SKU               string
	Price             float64
	InventoryQuantity int
	Images            models.RawJSON
}

// InventoryChangedPayload is published when a seller changes stock.
type InventoryChangedPayload struct {
	ProductID         uuid.UUID `json:"productId"`
	SellerID          uuid.UUID `json:"sellerId"`
	InventoryQuantity int       `json:"inventoryQuantity"`
}

func NewProductService(products repository.ProductRepository, publisher Publisher) *ProductService {
	return &ProductService{products: products, publisher: publisherOrNoop(publisher)}
}

func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if err := validation.ValidateLength("Title", in.Title, 255); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Price < 0 {
		return nil, models.NewValidationError("Price must not be negative")
	}
	if in.InventoryQuantity < 0 {
		return nil, models.NewValidationError("Inventory must not be negative")
	}
	in.SKU = validation.NormalizeSKU(in.SKU)
	if in.SKU != "" {
		if err := validation.ValidateSKU(in.SKU); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	product := &models.Product{
		SellerID:          in.SellerID,
		Title:             in.Title,
		Description:       in.Description,
		SKU:               in.SKU,
		Price:             in.Price,
		InventoryQuantity: in.InventoryQuantity,
		Images:            in.Images,
		IsActive:          true,
	}
	if product.SKU == "" {
		product.SKU = "SKU-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.products.GetByID(ctx, id)
}

// List browses the catalog. Unknown sort keys fall back to newest first.
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter, limit, offset int) ([]*models.Product, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.MinPrice != nil && *filter.MinPrice < 0 {
		return nil, models.NewValidationError("minPrice must not be negative")
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, models.NewValidationError("minPrice must not exceed maxPrice")
	}
	switch filter.SortBy {
	case repository.ProductSortNewest, repository.ProductSortPriceLow, repository.ProductSortPriceHigh:
	default:
		filter.SortBy = repository.ProductSortNewest
	}
	return s.products.List(ctx, filter, limit, offset)
}

// SetInventory overwrites stock for a product the seller owns and announces the change.
func (s *ProductService) SetInventory(ctx context.Context, id, sellerID uuid.UUID, quantity int) (*models.Product, error) {
	if quantity < 0 {
		return nil, models.NewValidationError("Inventory must not be negative")
	}
	product, err := s.products.SetInventory(ctx, id, sellerID, quantity)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, notifications.GlobalTopic, notifications.Event{
		Type: notifications.EventInventoryChanged,
		Payload: InventoryChangedPayload{
			ProductID:         product.ID,
			SellerID:          product.SellerID,
			InventoryQuantity: product.InventoryQuantity,
		},
	})
	return product, nil
}

// PostService manages feed posts.
type PostService struct {
	posts    repository.PostRepository
	products repository.ProductRepository
}

// CreatePostInput describes a new post.
type CreatePostInput struct {
	UserID    uuid.UUID
	Caption   string
	Type      models.PostType
	ProductID *uuid.UUID
	Media     models.RawJSON
	Tags      models.RawJSON
}

func NewPostService(posts repository.PostRepository, products repository.ProductRepository) *PostService {
	return &PostService{posts: posts, products: products}
}

// Create stores a post owned by the caller. A linked product must belong to them.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Type == "" {
		in.Type = models.PostTypeProduct
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Invalid post type")
	}
	in.Caption = strings.TrimSpace(in.Caption)
	if len(in.Caption) > 2200 {
		return nil, models.NewValidationError("Caption too long (max 2200 characters)")
	}

	if in.ProductID != nil {
		product, err := s.products.GetByID(ctx, *in.ProductID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return nil, models.NewNotOwnerError("Product", *in.ProductID)
			}
			return nil, err
		}
		if product.SellerID != in.UserID {
			return nil, models.NewNotOwnerError("Product", *in.ProductID)
		}
	}

	post := &models.Post{
		UserID:    in.UserID,
		Caption:   in.Caption,
		Type:      in.Type,
		ProductID: in.ProductID,
		Media:     in.Media,
		Tags:      in.Tags,
		IsActive:  true,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// List returns the active feed, newest first.
func (s *PostService) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}
