package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is an item a seller can feature in posts and live sessions.
type Product struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SellerID          uuid.UUID `gorm:"type:uuid;not null;index" json:"seller_id"`
	Seller            *User     `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"seller,omitempty"`
	Title             string    `gorm:"size:255;not null" json:"title"`
	Description       string    `gorm:"type:text" json:"description,omitempty"`
	SKU               string    `gorm:"size:100;uniqueIndex" json:"sku"`
	Price             float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	InventoryQuantity int       `gorm:"not null;default:0" json:"inventory_quantity"`
	Images            RawJSON   `json:"images,omitempty"`
	IsActive          bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *Product) BeforeCreate(_ *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
