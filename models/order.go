package models

import (
	"fmt"
	"time"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

// CanTransitionTo encodes the admin order workflow.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusShipped || next == OrderStatusRefunded || next == OrderStatusCancelled
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	case OrderStatusDelivered:
		return next == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusRefunded:
		return false
	}
	return false
}

// CountsAsRevenue is false for orders whose money never arrived or went back.
func (s OrderStatus) CountsAsRevenue() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered:
		return true
	case OrderStatusCancelled, OrderStatusRefunded:
		return false
	}
	return false
}

type Order struct {
	ID              string      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID          string      `json:"user_id" gorm:"type:uuid;index;not null"`
	Status          OrderStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	Subtotal        float64     `json:"subtotal"`
	ShippingFee     float64     `json:"shipping_fee"`
	Total           float64     `json:"total"`
	ShippingName    string      `json:"shipping_name"`
	ShippingAddress string      `json:"shipping_address" gorm:"type:text"`
	Phone           string      `json:"phone"`
	ReferralCode    *string     `json:"referral_code,omitempty"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// OrderItem snapshots the product at purchase time.
type OrderItem struct {
	ID        string  `json:"id" gorm:"primaryKey;type:uuid"`
	OrderID   string  `json:"order_id" gorm:"type:uuid;index;not null"`
	ProductID string  `json:"product_id" gorm:"type:uuid;index;not null"`
	Title     string  `json:"title"`
	ImageURL  string  `json:"image_url"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity" gorm:"check:quantity > 0"`
	LineTotal float64 `json:"line_total"`
}
