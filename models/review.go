package models

import "time"

type Review struct {
	ID         string    `json:"id" gorm:"primaryKey;type:uuid"`
	ProductID  string    `json:"product_id" gorm:"type:uuid;index;not null"`
	UserID     string    `json:"user_id" gorm:"type:uuid;index;not null"`
	UserName   string    `json:"user_name"`
	Rating     int       `json:"rating" gorm:"check:rating >= 1 and rating <= 5"`
	Comment    string    `json:"comment" gorm:"type:text"`
	IsApproved bool      `json:"is_approved" gorm:"default:false;index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product"`
	ProductID string    `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_user_product"`
	Quantity  int       `json:"quantity" gorm:"not null;check:quantity > 0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
