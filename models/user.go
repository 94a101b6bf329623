package models

import (
	"time"
)

// User holds login credentials. Profile carries everything else.
type User struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Profile is the account record the storefront works with. Its ID equals
// the owning User's ID.
type Profile struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	Email        string     `gorm:"index;not null" json:"email"`
	FullName     string     `json:"full_name"`
	IsAdmin      bool       `gorm:"default:false" json:"is_admin"`
	IsAuthorized bool       `gorm:"default:false;index" json:"is_authorized"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
	AuthToken    *string    `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}
