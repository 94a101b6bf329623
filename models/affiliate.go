package models

import (
	"fmt"
	"time"
)

// AffiliateStatus is the lifecycle state of an affiliate account.
type AffiliateStatus string

const (
	AffiliateStatusPending   AffiliateStatus = "pending"
	AffiliateStatusActive    AffiliateStatus = "active"
	AffiliateStatusSuspended AffiliateStatus = "suspended"
	AffiliateStatusRejected  AffiliateStatus = "rejected"
)

// AffiliateStatuses lists every AffiliateStatus value.
var AffiliateStatuses = []AffiliateStatus{
	AffiliateStatusPending,
	AffiliateStatusActive,
	AffiliateStatusSuspended,
	AffiliateStatusRejected,
}

// ParseAffiliateStatus rejects anything outside the closed set.
func ParseAffiliateStatus(s string) (AffiliateStatus, error) {
	for _, st := range AffiliateStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid affiliate status %q", s)
}

// CanTransitionTo reports whether an admin may move an affiliate from s to next.
func (s AffiliateStatus) CanTransitionTo(next AffiliateStatus) bool {
	switch s {
	case AffiliateStatusPending:
		return next == AffiliateStatusActive || next == AffiliateStatusRejected
	case AffiliateStatusActive:
		return next == AffiliateStatusSuspended
	case AffiliateStatusSuspended:
		return next == AffiliateStatusActive
	case AffiliateStatusRejected:
		return false
	}
	return false
}

// DefaultCommissionRate applies when neither the affiliate nor the link overrides it.
const DefaultCommissionRate = 0.10

type Affiliate struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string          `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	ReferralCode   string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"referral_code"`
	Status         AffiliateStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	CommissionRate float64         `gorm:"not null;default:0.1" json:"commission_rate"`
	PayoutEmail    string          `json:"payout_email,omitempty"`

	TotalClicks   int64   `gorm:"default:0" json:"total_clicks"`
	TotalSales    int64   `gorm:"default:0" json:"total_sales"`
	TotalEarnings float64 `gorm:"default:0" json:"total_earnings"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// ProductAffiliateLink is a product-specific referral code. At most one
// active link exists per (affiliate, product); deactivation is a flag flip.
type ProductAffiliateLink struct {
	ID                   string    `gorm:"primaryKey;type:uuid" json:"id"`
	AffiliateID          string    `gorm:"type:uuid;index:idx_link_affiliate_product;not null" json:"affiliate_id"`
	ProductID            string    `gorm:"type:uuid;index:idx_link_affiliate_product;not null" json:"product_id"`
	LinkCode             string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"link_code"`
	CustomCommissionRate *float64  `json:"custom_commission_rate"`
	Notes                *string   `gorm:"type:text" json:"notes"`
	IsActive             bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt            time.Time `json:"created_at" gorm:"autoCreateTime"`

	Affiliate *Affiliate `gorm:"foreignKey:AffiliateID" json:"affiliate,omitempty"`
	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// EffectiveRate resolves the commission rate for sales through this link.
func (l *ProductAffiliateLink) EffectiveRate(affiliateRate float64) float64 {
	if l != nil && l.CustomCommissionRate != nil {
		return *l.CustomCommissionRate
	}
	return affiliateRate
}

// AffiliateClick is an immutable record of one tracked inbound request.
// ProductLinkID and ProductID are both nil for general-code clicks.
type AffiliateClick struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	AffiliateID   string    `gorm:"type:uuid;not null;index" json:"affiliate_id"`
	ReferralCode  string    `gorm:"type:varchar(64);not null" json:"referral_code"`
	ProductLinkID *string   `gorm:"type:uuid;index" json:"product_link_id"`
	ProductID     *string   `gorm:"type:uuid" json:"product_id"`
	IPAddress     string    `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent     string    `gorm:"type:varchar(1024)" json:"user_agent"`
	ReferrerURL   string    `gorm:"type:varchar(1024)" json:"referrer_url"`
	LandingPage   string    `gorm:"type:varchar(512)" json:"landing_page"`
	CreatedAt     time.Time `gorm:"index;autoCreateTime" json:"created_at"`
}

type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusApproved  SaleStatus = "approved"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// AffiliateSale is a commissioned conversion of an order.
type AffiliateSale struct {
	ID               string     `gorm:"primaryKey;type:uuid" json:"id"`
	AffiliateID      string     `gorm:"type:uuid;not null;index" json:"affiliate_id"`
	ProductLinkID    *string    `gorm:"type:uuid;index" json:"product_link_id"`
	OrderID          string     `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	ReferralCode     string     `gorm:"type:varchar(64)" json:"referral_code"`
	OrderTotal       float64    `json:"order_total"`
	CommissionRate   float64    `json:"commission_rate"`
	CommissionAmount float64    `json:"commission_amount"`
	Status           SaleStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
}
