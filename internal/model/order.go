package model

import (
	"time"
)

// OrderStatus is a lifecycle state of an order. Legal successions are defined by the
// lifecycle engine in the service package.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCutting   OrderStatus = "cutting"
	OrderStatusSewing    OrderStatus = "sewing"
	OrderStatusFinishing OrderStatus = "finishing"
	OrderStatusQC        OrderStatus = "qc"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderListResponse is one page of the all-orders list
type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

// ProductSnapshot is the product data frozen into an order at booking time.
type ProductSnapshot struct {
	Title     string  `json:"title" dynamodbav:"title" gorm:"type:varchar(255)"`
	UnitPrice float64 `json:"unit_price" dynamodbav:"unit_price"`
}

// Order represents a placed bulk order
type Order struct {
	ID              string          `json:"id" dynamodbav:"order_id" gorm:"type:varchar(36);primaryKey"`
	BuyerID         string          `json:"buyer_id" dynamodbav:"buyer_id" gorm:"type:varchar(36);not null;index"`
	ProductID       string          `json:"product_id" dynamodbav:"product_id" gorm:"type:varchar(36);not null;index"`
	Product         ProductSnapshot `json:"product" dynamodbav:"product" gorm:"embedded;embeddedPrefix:product_"`
	Quantity        int             `json:"quantity" dynamodbav:"quantity"`
	UnitPrice       float64         `json:"unit_price" dynamodbav:"unit_price"`
	TotalPrice      float64         `json:"total_price" dynamodbav:"total_price"`
	DeliveryAddress string          `json:"delivery_address" dynamodbav:"delivery_address" gorm:"type:text"`
	ContactNumber   string          `json:"contact_number" dynamodbav:"contact_number" gorm:"type:varchar(50)"`
	PaymentOption   string          `json:"payment_option" dynamodbav:"payment_option" gorm:"type:varchar(50)"`
	Notes           string          `json:"notes,omitempty" dynamodbav:"notes,omitempty" gorm:"type:text"`
	Status          OrderStatus     `json:"status" dynamodbav:"status" gorm:"type:varchar(20);not null;index"`
	History         []OrderEvent    `json:"history" dynamodbav:"history" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" dynamodbav:"updated_at"`
}

// LastEvent returns the most recent history entry, or nil for an empty history.
func (o *Order) LastEvent() *OrderEvent {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}

// Clone returns a copy of the order whose history can be appended to without
// touching the receiver.
func (o *Order) Clone() *Order {
	c := *o
	c.History = make([]OrderEvent, len(o.History), len(o.History)+1)
	copy(c.History, o.History)
	return &c
}

// OrderEvent is one immutable entry of an order's status history.
type OrderEvent struct {
	ID         uint        `json:"-" dynamodbav:"-" gorm:"primaryKey"`
	OrderID    string      `json:"-" dynamodbav:"-" gorm:"type:varchar(36);not null;index"`
	Status     OrderStatus `json:"status" dynamodbav:"status" gorm:"type:varchar(20);not null"`
	Location   string      `json:"location" dynamodbav:"location" gorm:"type:varchar(255)"`
	Notes      string      `json:"notes" dynamodbav:"notes" gorm:"type:text"`
	ActorID    string      `json:"actor_id,omitempty" dynamodbav:"actor_id,omitempty" gorm:"type:varchar(36)"`
	OccurredAt time.Time   `json:"occurred_at" dynamodbav:"occurred_at" gorm:"not null;index"`
}

// TableName keeps the history table name stable.
func (OrderEvent) TableName() string {
	return "order_events"
}

// CreateOrderRequest is a buyer's booking request
type CreateOrderRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,min=1"`
	DeliveryAddress string `json:"delivery_address"`
	ContactNumber   string `json:"contact_number"`
	PaymentOption   string `json:"payment_option"`
	Notes           string `json:"notes"`
}

// TransitionRequest asks for a status change. Used by both the status and the
// tracking endpoints.
type TransitionRequest struct {
	Status   OrderStatus `json:"status" binding:"required"`
	Notes    string      `json:"notes"`
	Location string      `json:"location"`
}
