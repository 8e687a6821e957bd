package server

import (
	"math"
	"strconv"

	"pipal/internal/models"
	"pipal/internal/repository"
	"pipal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	posts, err := s.postService.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Caption   string          `json:"caption"`
		Type      models.PostType `json:"type"`
		ProductID *uuid.UUID      `json:"productId"`
		Media     models.RawJSON  `json:"media"`
		Tags      models.RawJSON  `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		UserID:    currentUser(c).ID,
		Caption:   req.Caption,
		Type:      req.Type,
		ProductID: req.ProductID,
		Media:     req.Media,
		Tags:      req.Tags,
	})
	if err != nil {
		if req.ProductID != nil {
			return s.mapOwnedResourceError(c, "Product", *req.ProductID, err)
		}
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// CreateProduct handles POST /api/products
func (s *Server) CreateProduct(c *fiber.Ctx) error {
	var req struct {
		Title             string         `json:"title"`
		Description       string         `json:"description"`
		SKU               string         `json:"sku"`
		Price             float64        `json:"price"`
		InventoryQuantity int            `json:"inventoryQuantity"`
		Images            models.RawJSON `json:"images"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	product, err := s.productService.Create(c.UserContext(), service.CreateProductInput{
		SellerID:          currentUser(c).ID,
		Title:             req.Title,
		Description:       req.Description,
		SKU:               req.SKU,
		Price:             req.Price,
		InventoryQuantity: req.InventoryQuantity,
		Images:            req.Images,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// GetProducts handles GET /api/products
func (s *Server) GetProducts(c *fiber.Ctx) error {
	filter := repository.ProductFilter{
		Search: c.Query("search"),
		SortBy: c.Query("sortBy"),
	}
	if raw := c.Query("sellerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid seller ID"))
		}
		filter.SellerID = &id
	}
	var err error
	if filter.MinPrice, err = queryPrice(c, "minPrice"); err != nil {
		return nil
	}
	if filter.MaxPrice, err = queryPrice(c, "maxPrice"); err != nil {
		return nil
	}

	p := parsePagination(c, 20)
	products, err := s.productService.List(c.UserContext(), filter, p.Limit, p.Offset)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(products)
}

// queryPrice reads an optional price bound. Like parseUUID it writes the 400 itself.
func queryPrice(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+key))
		return nil, errResponseWritten
	}
	return &v, nil
}

// GetProduct handles GET /api/products/:id
func (s *Server) GetProduct(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	product, err := s.productService.Get(c.UserContext(), id)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(product)
}

// SetProductInventory handles PATCH /api/products/:id/inventory
func (s *Server) SetProductInventory(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		InventoryQuantity *int `json:"inventoryQuantity"`
	}
	if err := c.BodyParser(&req); err != nil || req.InventoryQuantity == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("inventoryQuantity is required"))
	}

	product, err := s.productService.SetInventory(c.UserContext(), id, currentUser(c).ID, *req.InventoryQuantity)
	if err != nil {
		return s.mapOwnedResourceError(c, "Product", id, err)
	}
	return c.JSON(product)
}

// PlaceOrder handles POST /api/orders
func (s *Server) PlaceOrder(c *fiber.Ctx) error {
	var req struct {
		Items []struct {
			ProductID uuid.UUID `json:"productId"`
			Quantity  int       `json:"quantity"`
		} `json:"items"`
		LiveSessionID   *uuid.UUID     `json:"liveSessionId"`
		ShippingAddress models.RawJSON `json:"shippingAddress"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := s.orderService.Place(c.UserContext(), service.PlaceOrderInput{
		BuyerID:         currentUser(c).ID,
		Items:           items,
		LiveSessionID:   req.LiveSessionID,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetMyOrders handles GET /api/orders/mine
func (s *Server) GetMyOrders(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	orders, err := s.orderService.ListMine(c.UserContext(), currentUser(c).ID, p.Limit, p.Offset)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(orders)
}

// GetOrder handles GET /api/orders/:id
func (s *Server) GetOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	order, err := s.orderService.Get(c.UserContext(), id, currentUser(c).ID)
	if err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(order)
}
