package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cozzyhub/models"

	"gorm.io/gorm"
)

func (s *Store) AffiliateByUserID(ctx context.Context, userID string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error) {
	var a models.Affiliate
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) ActiveAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var a models.Affiliate
	err := s.DB.WithContext(ctx).
		Where("referral_code = ? AND status = ?", code, models.AffiliateStatusActive).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Affiliate{}).Where("referral_code = ?", code).Count(&count).Error
	return count > 0, translate(err)
}

func (s *Store) CreateAffiliate(ctx context.Context, a *models.Affiliate) error {
	return translate(s.DB.WithContext(ctx).Create(a).Error)
}

func (s *Store) UpdateAffiliateStatus(ctx context.Context, id string, status models.AffiliateStatus) error {
	res := s.DB.WithContext(ctx).Model(&models.Affiliate{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAffiliates(ctx context.Context, status string) ([]models.Affiliate, error) {
	var out []models.Affiliate
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ActiveLink(ctx context.Context, affiliateID, productID string) (*models.ProductAffiliateLink, error) {
	var l models.ProductAffiliateLink
	err := s.DB.WithContext(ctx).
		Where("affiliate_id = ? AND product_id = ? AND is_active = ?", affiliateID, productID, true).
		First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// ActiveLinkByCode returns an active link with its owning affiliate loaded.
func (s *Store) ActiveLinkByCode(ctx context.Context, code string) (*models.ProductAffiliateLink, error) {
	var l models.ProductAffiliateLink
	err := s.DB.WithContext(ctx).
		Preload("Affiliate").
		Where("link_code = ? AND is_active = ?", code, true).
		First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	if l.Affiliate == nil {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *Store) CreateLink(ctx context.Context, l *models.ProductAffiliateLink) error {
	return translate(s.DB.WithContext(ctx).Create(l).Error)
}

func (s *Store) ListLinks(ctx context.Context, affiliateID string) ([]models.ProductAffiliateLink, error) {
	var out []models.ProductAffiliateLink
	err := s.DB.WithContext(ctx).
		Preload("Product").
		Where("affiliate_id = ?", affiliateID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// DeactivateLink soft-deletes a link, scoped to its owner.
func (s *Store) DeactivateLink(ctx context.Context, affiliateID, linkID string) error {
	res := s.DB.WithContext(ctx).
		Model(&models.ProductAffiliateLink{}).
		Where("id = ? AND affiliate_id = ?", linkID, affiliateID).
		Update("is_active", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GenerateLinkCode derives "{referralCode}-{first 8 hex of product id}",
// adding a numeric suffix until the code is unused.
func (s *Store) GenerateLinkCode(ctx context.Context, referralCode, productID string) (string, error) {
	base := LinkCodeBase(referralCode, productID)
	for i := 1; i <= 50; i++ {
		code := base
		if i > 1 {
			code = fmt.Sprintf("%s-%d", base, i)
		}
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.ProductAffiliateLink{}).Where("link_code = ?", code).Count(&count).Error; err != nil {
			return "", translate(err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free link code for %s", base)
}

// LinkCodeBase is the deterministic part of a product link code.
func LinkCodeBase(referralCode, productID string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(productID, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return referralCode + "-" + suffix
}

func (s *Store) CreateClick(ctx context.Context, c *models.AffiliateClick) error {
	return translate(s.DB.WithContext(ctx).Create(c).Error)
}

// RecordSale inserts the sale and bumps the affiliate's counters atomically.
func (s *Store) RecordSale(ctx context.Context, sale *models.AffiliateSale) error {
	return translate(s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sale).Error; err != nil {
			return err
		}
		return tx.Model(&models.Affiliate{}).
			Where("id = ?", sale.AffiliateID).
			Updates(map[string]any{
				"total_sales":    gorm.Expr("total_sales + 1"),
				"total_earnings": gorm.Expr("total_earnings + ?", sale.CommissionAmount),
			}).Error
	}))
}

// RefreshCounters recomputes every affiliate's aggregate counters from the
// click and sale rows. Returns the number of affiliates touched.
func (s *Store) RefreshCounters(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Exec(`
		UPDATE affiliates AS a SET
			total_clicks   = COALESCE((SELECT COUNT(*) FROM affiliate_clicks c WHERE c.affiliate_id = a.id), 0),
			total_sales    = COALESCE((SELECT COUNT(*) FROM affiliate_sales s WHERE s.affiliate_id = a.id AND s.status <> ?), 0),
			total_earnings = COALESCE((SELECT SUM(s.commission_amount) FROM affiliate_sales s WHERE s.affiliate_id = a.id AND s.status <> ?), 0)
	`, models.SaleStatusCancelled, models.SaleStatusCancelled)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// AffiliateSummaryRow is one line of the admin affiliate report.
type AffiliateSummaryRow struct {
	AffiliateID   string  `json:"affiliate_id"`
	ReferralCode  string  `json:"referral_code"`
	Status        string  `json:"status"`
	Clicks        int64   `json:"clicks"`
	Sales         int64   `json:"sales"`
	Earnings      float64 `json:"earnings"`
	ActiveLinks   int64   `json:"active_links"`
}

func (s *Store) AffiliateSummary(ctx context.Context) ([]AffiliateSummaryRow, error) {
	var rows []AffiliateSummaryRow
	err := s.DB.WithContext(ctx).Raw(`
		SELECT a.id AS affiliate_id, a.referral_code, a.status,
			a.total_clicks AS clicks, a.total_sales AS sales, a.total_earnings AS earnings,
			(SELECT COUNT(*) FROM product_affiliate_links l WHERE l.affiliate_id = a.id AND l.is_active) AS active_links
		FROM affiliates a
		ORDER BY a.total_earnings DESC
	`).Scan(&rows).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translate(err)
	}
	return rows, nil
}
