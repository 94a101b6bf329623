package services

import (
	"context"
	"errors"
	"strings"

	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/rs/zerolog/log"
)

// Attribution is a resolved referral: always an affiliate, and a product
// link when the code named one.
type Attribution struct {
	Affiliate *models.Affiliate
	Link      *models.ProductAffiliateLink
}

// Resolve maps a referral code onto an affiliate. Hyphenated codes are tried
// as product link codes first; every code falls back to the active
// affiliate whose referral code matches exactly.
func (s *AffiliateService) Resolve(ctx context.Context, code string) (*Attribution, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrReferralNotFound
	}

	if strings.Contains(code, "-") {
		link, err := s.store.ActiveLinkByCode(ctx, code)
		switch {
		case err == nil && link.Affiliate != nil:
			return &Attribution{Affiliate: link.Affiliate, Link: link}, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}

	aff, err := s.store.ActiveAffiliateByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReferralNotFound
		}
		return nil, err
	}
	return &Attribution{Affiliate: aff}, nil
}

// ClickRequest carries the ambient request data recorded with a click.
type ClickRequest struct {
	Code        string
	LandingPage string

	ForwardedFor string
	RealIP       string
	UserAgent    string
	Referer      string
}

// ExtractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func ExtractClientIP(forwardedFor, realIP string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP = strings.TrimSpace(realIP); realIP != "" {
		return realIP
	}
	return "unknown"
}

// AttributeClick resolves req.Code and records one click row. Nothing is
// written when the code resolves to no affiliate. Clicks are not deduplicated.
func (s *AffiliateService) AttributeClick(ctx context.Context, req ClickRequest) (*models.AffiliateClick, error) {
	attr, err := s.Resolve(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	click := &models.AffiliateClick{
		AffiliateID:  attr.Affiliate.ID,
		ReferralCode: req.Code,
		IPAddress:    ExtractClientIP(req.ForwardedFor, req.RealIP),
		UserAgent:    req.UserAgent,
		ReferrerURL:  req.Referer,
		LandingPage:  req.LandingPage,
	}
	if attr.Link != nil {
		linkID, productID := attr.Link.ID, attr.Link.ProductID
		click.ProductLinkID = &linkID
		click.ProductID = &productID
	}

	if err := s.store.CreateClick(ctx, click); err != nil {
		return nil, err
	}

	log.Debug().Str("affiliate_id", click.AffiliateID).Str("code", req.Code).Bool("product_link", attr.Link != nil).Msg("[AFFILIATE] click recorded")
	return click, nil
}
