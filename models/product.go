// models/product.go
package models

import (
	"strings"

	"github.com/gosimple/unidecode"
	"gorm.io/gorm"
)

type Category struct {
	ID          string `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`

	Timestamps
}

type Product struct {
	ID             string   `json:"id" gorm:"primaryKey;type:uuid"`
	Title          string   `json:"title" gorm:"not null"`
	Slug           string   `json:"slug" gorm:"uniqueIndex;not null"`
	Description    string   `json:"description" gorm:"type:text"`
	Price          float64  `json:"price" gorm:"not null;check:price >= 0"`
	CompareAtPrice *float64 `json:"compare_at_price,omitempty"`
	Stock          int      `json:"stock" gorm:"not null;default:0"`
	CategoryID     *string  `json:"category_id,omitempty" gorm:"type:uuid;index"`

	// 🖼️ Media
	Images []string `json:"images" gorm:"serializer:json;type:jsonb"`

	Color             string            `json:"color,omitempty"`
	Highlights        []string          `json:"product_highlights,omitempty" gorm:"serializer:json;type:jsonb"`
	AdditionalDetails map[string]string `json:"additional_details,omitempty" gorm:"serializer:json;type:jsonb"`

	// Import provenance (browser extension)
	SourceURL string `json:"source_url,omitempty"`
	Source    string `json:"source,omitempty"`

	// No column default: GORM would swap an explicit false for it on insert.
	IsActive      bool    `json:"is_active" gorm:"not null;index"`
	AverageRating float64 `json:"average_rating" gorm:"default:0"`
	ReviewCount   int     `json:"review_count" gorm:"default:0"`

	// SearchText is the accent-folded, lowercased title and description.
	SearchText string `json:"-" gorm:"type:text"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`

	Timestamps
}

// FoldSearch lowercases s and strips accents so "Café" matches "cafe".
func FoldSearch(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

func (p *Product) BeforeSave(*gorm.DB) error {
	p.SearchText = FoldSearch(p.Title + " " + p.Description)
	return nil
}
