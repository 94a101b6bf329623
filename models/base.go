package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// All lists every model owned by the service, in migration order.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&Category{},
		&Product{},
		&Review{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&StockMovement{},
		&Affiliate{},
		&ProductAffiliateLink{},
		&AffiliateClick{},
		&AffiliateSale{},
	}
}

// Primary keys are generated on insert by the application, not by a column
// default, so the row id is known before the INSERT runs.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error                 { assignID(&u.ID); return nil }
func (c *Category) BeforeCreate(*gorm.DB) error             { assignID(&c.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error              { assignID(&p.ID); return nil }
func (r *Review) BeforeCreate(*gorm.DB) error               { assignID(&r.ID); return nil }
func (ci *CartItem) BeforeCreate(*gorm.DB) error            { assignID(&ci.ID); return nil }
func (o *Order) BeforeCreate(*gorm.DB) error                { assignID(&o.ID); return nil }
func (oi *OrderItem) BeforeCreate(*gorm.DB) error           { assignID(&oi.ID); return nil }
func (m *StockMovement) BeforeCreate(*gorm.DB) error        { assignID(&m.ID); return nil }
func (a *Affiliate) BeforeCreate(*gorm.DB) error            { assignID(&a.ID); return nil }
func (l *ProductAffiliateLink) BeforeCreate(*gorm.DB) error { assignID(&l.ID); return nil }
func (c *AffiliateClick) BeforeCreate(*gorm.DB) error       { assignID(&c.ID); return nil }
func (s *AffiliateSale) BeforeCreate(*gorm.DB) error        { assignID(&s.ID); return nil }
