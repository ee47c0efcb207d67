package model

import "time"

// Product is a garment offered for bulk ordering
type Product struct {
	ID                   string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title                string    `json:"title" gorm:"type:varchar(255);not null"`
	Description          string    `json:"description" gorm:"type:text"`
	Category             string    `json:"category" gorm:"type:varchar(100);index"`
	UnitPrice            float64   `json:"unit_price" gorm:"not null"`
	MinimumOrderQuantity int       `json:"minimum_order_quantity" gorm:"not null;default:1"`
	AvailableQuantity    int       `json:"available_quantity" gorm:"not null;default:0"`
	PaymentOptions       []string  `json:"payment_options" gorm:"serializer:json;type:text"`
	CreatedBy            string    `json:"created_by" gorm:"type:varchar(36)"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProductRequest is the create/update payload for products
type ProductRequest struct {
	Title                string   `json:"title" binding:"required"`
	Description          string   `json:"description"`
	Category             string   `json:"category"`
	UnitPrice            float64  `json:"unit_price" binding:"required,gt=0"`
	MinimumOrderQuantity int      `json:"minimum_order_quantity" binding:"required,min=1"`
	AvailableQuantity    int      `json:"available_quantity" binding:"min=0"`
	PaymentOptions       []string `json:"payment_options"`
}

// ProductListResponse is the product list payload
type ProductListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
