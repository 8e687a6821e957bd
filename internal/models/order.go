package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus tracks fulfilment progress.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order pricing constants.
const (
	OrderTaxRate        = 0.08
	OrderShippingAmount = 10.00
)

// Order is a buyer's purchase from a single seller, optionally attributed to a live session.
type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber     string      `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	BuyerID         uuid.UUID   `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID        uuid.UUID   `gorm:"type:uuid;not null;index" json:"seller_id"`
	LiveSessionID   *uuid.UUID  `gorm:"type:uuid;index" json:"live_session_id,omitempty"`
	Status          OrderStatus `gorm:"size:20;not null;default:pending" json:"status"`
	PaymentStatus   string      `gorm:"size:20;not null;default:pending" json:"payment_status"`
	Subtotal        float64     `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxAmount       float64     `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	ShippingAmount  float64     `gorm:"type:decimal(12,2);not null" json:"shipping_amount"`
	TotalAmount     float64     `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ShippingAddress RawJSON     `json:"shipping_address,omitempty"`
	Items           []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt       time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (o *Order) BeforeCreate(_ *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots a product line at purchase time.
type OrderItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductTitle string    `gorm:"size:255;not null" json:"product_title"`
	ProductSKU   string    `gorm:"size:100" json:"product_sku,omitempty"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	UnitPrice    float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice   float64   `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt    time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (i *OrderItem) BeforeCreate(_ *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// PriceOrder fills subtotal, tax, shipping and total from the order's items.
func (o *Order) PriceOrder() {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].TotalPrice = roundCents(o.Items[i].UnitPrice * float64(o.Items[i].Quantity))
		subtotal += o.Items[i].TotalPrice
	}
	o.Subtotal = roundCents(subtotal)
	o.TaxAmount = roundCents(o.Subtotal * OrderTaxRate)
	o.ShippingAmount = OrderShippingAmount
	o.TotalAmount = roundCents(o.Subtotal + o.TaxAmount + o.ShippingAmount)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
