package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"strings"

	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/rs/zerolog/log"
)

// AffiliateStore persists affiliates, their product links, clicks and sales.
type AffiliateStore interface {
	AffiliateByUserID(ctx context.Context, userID string) (*models.Affiliate, error)
	AffiliateByID(ctx context.Context, id string) (*models.Affiliate, error)
	ActiveAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	CreateAffiliate(ctx context.Context, a *models.Affiliate) error
	UpdateAffiliateStatus(ctx context.Context, id string, status models.AffiliateStatus) error
	ListAffiliates(ctx context.Context, status string) ([]models.Affiliate, error)

	ProductByID(ctx context.Context, id string) (*models.Product, error)

	ActiveLink(ctx context.Context, affiliateID, productID string) (*models.ProductAffiliateLink, error)
	ActiveLinkByCode(ctx context.Context, code string) (*models.ProductAffiliateLink, error)
	CreateLink(ctx context.Context, l *models.ProductAffiliateLink) error
	ListLinks(ctx context.Context, affiliateID string) ([]models.ProductAffiliateLink, error)
	DeactivateLink(ctx context.Context, affiliateID, linkID string) error

	CreateClick(ctx context.Context, c *models.AffiliateClick) error
	RecordSale(ctx context.Context, sale *models.AffiliateSale) error
	RefreshCounters(ctx context.Context) (int64, error)
}

// LinkCodeGenerator derives a unique product link code from an affiliate's
// referral code and a product id.
type LinkCodeGenerator interface {
	GenerateLinkCode(ctx context.Context, referralCode, productID string) (string, error)
}

type AffiliateService struct {
	store   AffiliateStore
	codes   LinkCodeGenerator
	siteURL string
}

func NewAffiliateService(store AffiliateStore, codes LinkCodeGenerator, siteURL string) *AffiliateService {
	return &AffiliateService{store: store, codes: codes, siteURL: siteURL}
}

const (
	referralCodeLength   = 8
	referralCodeAttempts = 10
	// No hyphen: hyphenated codes are product link codes.
	referralCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCharset[int(b)%len(referralCharset)]
	}
	return string(buf), nil
}

type ApplyInput struct {
	PayoutEmail string `json:"payout_email" validate:"omitempty,email"`
}

// Apply opens a pending affiliate account for userID.
func (s *AffiliateService) Apply(ctx context.Context, userID string, in ApplyInput) (*models.Affiliate, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.store.AffiliateByUserID(ctx, userID); err == nil {
		return nil, ErrAffiliateExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := newReferralCode()
		if err != nil {
			return nil, err
		}
		exists, err := s.store.ReferralCodeExists(ctx, code)
		if err != nil || exists {
			continue
		}
		aff := &models.Affiliate{
			UserID:         userID,
			ReferralCode:   code,
			Status:         models.AffiliateStatusPending,
			CommissionRate: models.DefaultCommissionRate,
			PayoutEmail:    in.PayoutEmail,
		}
		if err := s.store.CreateAffiliate(ctx, aff); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				if _, e := s.store.AffiliateByUserID(ctx, userID); e == nil {
					return nil, ErrAffiliateExists
				}
				continue
			}
			return nil, err
		}
		log.Info().Str("user_id", userID).Str("code", code).Msg("[AFFILIATE] application received")
		return aff, nil
	}
	return nil, errors.New("could not allocate a referral code")
}

// Dashboard returns the caller's affiliate record with its counters.
func (s *AffiliateService) Dashboard(ctx context.Context, userID string) (*models.Affiliate, error) {
	aff, err := s.store.AffiliateByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAffiliateNotFound
	}
	return aff, err
}

// List returns affiliates, optionally filtered by status.
func (s *AffiliateService) List(ctx context.Context, status string) ([]models.Affiliate, error) {
	if status != "" {
		if _, err := models.ParseAffiliateStatus(status); err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
	}
	return s.store.ListAffiliates(ctx, status)
}

// SetStatus applies an admin status change through the transition table.
func (s *AffiliateService) SetStatus(ctx context.Context, affiliateID, status string) (*models.Affiliate, error) {
	next, err := models.ParseAffiliateStatus(status)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	aff, err := s.store.AffiliateByID(ctx, affiliateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	if !aff.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, aff.Status, next)
	}
	if err := s.store.UpdateAffiliateStatus(ctx, aff.ID, next); err != nil {
		return nil, err
	}
	aff.Status = next
	log.Info().Str("affiliate_id", aff.ID).Str("status", string(next)).Msg("[AFFILIATE] status changed")
	return aff, nil
}

// ShareURL is the public product URL carrying a link code.
func (s *AffiliateService) ShareURL(productID, linkCode string) string {
	return fmt.Sprintf("%s/products/%s?ref=%s", s.siteURL, productID, linkCode)
}

type IssueLinkInput struct {
	ProductID            string   `json:"product_id" validate:"required"`
	CustomCommissionRate *float64 `json:"custom_commission_rate" validate:"omitempty,gte=0,lte=1"`
	Notes                *string  `json:"notes" validate:"omitempty,max=500"`
}

type IssueLinkResult struct {
	Link     *models.ProductAffiliateLink
	ShareURL string
	// Existing is true when an active link for the pair was returned unchanged.
	Existing bool
}

// IssueProductLink is an idempotent get-or-create of the caller's link for a
// product. An existing active link is returned without generating a code.
func (s *AffiliateService) IssueProductLink(ctx context.Context, userID string, in IssueLinkInput) (*IssueLinkResult, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	aff, err := s.store.AffiliateByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAffiliateNotActive
		}
		return nil, err
	}
	if aff.Status != models.AffiliateStatusActive {
		return nil, ErrAffiliateNotActive
	}

	product, err := s.store.ProductByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	existing, err := s.store.ActiveLink(ctx, aff.ID, product.ID)
	if err == nil {
		return &IssueLinkResult{Link: existing, ShareURL: s.ShareURL(product.ID, existing.LinkCode), Existing: true}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	code, err := s.codes.GenerateLinkCode(ctx, aff.ReferralCode, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate link code: %w", err)
	}

	link := &models.ProductAffiliateLink{
		AffiliateID:          aff.ID,
		ProductID:            product.ID,
		LinkCode:             code,
		CustomCommissionRate: in.CustomCommissionRate,
		Notes:                in.Notes,
		IsActive:             true,
	}
	if err := s.store.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create affiliate link: %w", err)
	}

	log.Info().Str("affiliate_id", aff.ID).Str("product_id", product.ID).Str("code", code).Msg("[AFFILIATE] product link created")
	return &IssueLinkResult{Link: link, ShareURL: s.ShareURL(product.ID, code)}, nil
}

// LinkView is a link enriched with its shareable URL.
type LinkView struct {
	models.ProductAffiliateLink
	ShareURL string `json:"share_url"`
}

// ListLinks returns every link of the caller's affiliate account.
func (s *AffiliateService) ListLinks(ctx context.Context, userID string) ([]LinkView, error) {
	aff, err := s.store.AffiliateByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	links, err := s.store.ListLinks(ctx, aff.ID)
	if err != nil {
		return nil, err
	}
	out := make([]LinkView, 0, len(links))
	for _, l := range links {
		out = append(out, LinkView{ProductAffiliateLink: l, ShareURL: s.ShareURL(l.ProductID, l.LinkCode)})
	}
	return out, nil
}

// DeactivateLink soft-deletes one of the caller's links.
func (s *AffiliateService) DeactivateLink(ctx context.Context, userID, linkID string) error {
	aff, err := s.store.AffiliateByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAffiliateNotFound
		}
		return err
	}
	if err := s.store.DeactivateLink(ctx, aff.ID, linkID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrLinkNotFound
		}
		return err
	}
	return nil
}

// RecordConversion turns an order placed under a referral code into a
// commissioned sale. The commission rate is the link's custom rate when set,
// else the affiliate's default.
func (s *AffiliateService) RecordConversion(ctx context.Context, orderID, referralCode string, orderTotal float64) (*models.AffiliateSale, error) {
	attr, err := s.Resolve(ctx, referralCode)
	if err != nil {
		return nil, err
	}

	rate := attr.Link.EffectiveRate(attr.Affiliate.CommissionRate)
	sale := &models.AffiliateSale{
		AffiliateID:      attr.Affiliate.ID,
		OrderID:          orderID,
		ReferralCode:     referralCode,
		OrderTotal:       orderTotal,
		CommissionRate:   rate,
		CommissionAmount: math.Round(orderTotal*rate*100) / 100,
		Status:           models.SaleStatusPending,
	}
	if attr.Link != nil {
		id := attr.Link.ID
		sale.ProductLinkID = &id
	}
	if err := s.store.RecordSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to record affiliate sale: %w", err)
	}

	log.Info().Str("affiliate_id", sale.AffiliateID).Str("order_id", orderID).Float64("commission", sale.CommissionAmount).Msg("[AFFILIATE] conversion recorded")
	return sale, nil
}

// RefreshCounters recomputes the aggregate counters of every affiliate.
func (s *AffiliateService) RefreshCounters(ctx context.Context) (int64, error) {
	return s.store.RefreshCounters(ctx)
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}
