package models

import "time"

// StockSeverity classifies a product's stock level against the alert threshold.
type StockSeverity string

const (
	StockOK         StockSeverity = "ok"
	StockLow        StockSeverity = "low"
	StockCritical   StockSeverity = "critical"
	StockOutOfStock StockSeverity = "out_of_stock"
)

// ClassifyStock: 0 is out of stock, <= threshold/2 critical, <= threshold low.
func ClassifyStock(stock, threshold int) StockSeverity {
	switch {
	case stock <= 0:
		return StockOutOfStock
	case stock <= threshold/2:
		return StockCritical
	case stock <= threshold:
		return StockLow
	default:
		return StockOK
	}
}

// NeedsAlert is true for every severity an admin should see.
func (s StockSeverity) NeedsAlert() bool {
	switch s {
	case StockLow, StockCritical, StockOutOfStock:
		return true
	case StockOK:
		return false
	}
	return false
}

// StockMovement is the audit trail of manual and checkout stock changes.
type StockMovement struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	ProductID  string    `json:"product_id" gorm:"type:uuid;index;not null"`
	Delta      int       `json:"delta"`
	StockAfter int       `json:"stock_after"`
	Reason     string    `json:"reason"`
	ActorID    string    `json:"actor_id,omitempty"`
	OrderID    *string   `json:"order_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}
