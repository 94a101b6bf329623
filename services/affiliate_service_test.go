package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingCodes counts calls through to the store's code generator.
type countingCodes struct {
	inner LinkCodeGenerator
	calls atomic.Int32
}

func (c *countingCodes) GenerateLinkCode(ctx context.Context, referralCode, productID string) (string, error) {
	c.calls.Add(1)
	return c.inner.GenerateLinkCode(ctx, referralCode, productID)
}

type affiliateFixture struct {
	svc     *AffiliateService
	store   *repository.MemoryStore
	codes   *countingCodes
	aff     *models.Affiliate
	product *models.Product
}

func newAffiliateFixture(t *testing.T) *affiliateFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	codes := &countingCodes{inner: store}
	aff := &models.Affiliate{
		UserID:         "user-1",
		ReferralCode:   "ABCD2345",
		Status:         models.AffiliateStatusActive,
		CommissionRate: models.DefaultCommissionRate,
	}
	require.NoError(t, store.CreateAffiliate(context.Background(), aff))
	product := store.AddProduct(models.Product{Title: "Linen Throw", Slug: "linen-throw", Price: 49.5, Stock: 10, IsActive: true})
	return &affiliateFixture{
		svc:     NewAffiliateService(store, codes, testSite),
		store:   store,
		codes:   codes,
		aff:     aff,
		product: product,
	}
}

func TestIssueProductLink_CreatesThenReturnsExisting(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()

	first, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID})
	require.NoError(t, err)
	assert.False(t, first.Existing)
	assert.Equal(t, repository.LinkCodeBase("ABCD2345", f.product.ID), first.Link.LinkCode)
	assert.True(t, strings.HasPrefix(first.Link.LinkCode, "ABCD2345-"))
	assert.Nil(t, first.Link.CustomCommissionRate)
	assert.Nil(t, first.Link.Notes)
	assert.Equal(t, testSite+"/products/"+f.product.ID+"?ref="+first.Link.LinkCode, first.ShareURL)

	rate := 0.25
	second, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID, CustomCommissionRate: &rate})
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.Link.ID, second.Link.ID)
	assert.Nil(t, second.Link.CustomCommissionRate)

	assert.EqualValues(t, 1, f.codes.calls.Load())
}

func TestIssueProductLink_KeepsCustomRateAndNotes(t *testing.T) {
	f := newAffiliateFixture(t)
	rate, notes := 0.15, "instagram bio"

	res, err := f.svc.IssueProductLink(context.Background(), "user-1", IssueLinkInput{
		ProductID: f.product.ID, CustomCommissionRate: &rate, Notes: &notes,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Link.CustomCommissionRate)
	assert.Equal(t, 0.15, *res.Link.CustomCommissionRate)
	require.NotNil(t, res.Link.Notes)
	assert.Equal(t, notes, *res.Link.Notes)
}

func TestIssueProductLink_RequiresActiveAffiliate(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()

	_, err := f.svc.IssueProductLink(ctx, "nobody", IssueLinkInput{ProductID: f.product.ID})
	assert.ErrorIs(t, err, ErrAffiliateNotActive)

	require.NoError(t, f.store.UpdateAffiliateStatus(ctx, f.aff.ID, models.AffiliateStatusSuspended))
	_, err = f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID})
	assert.ErrorIs(t, err, ErrAffiliateNotActive)
	assert.EqualValues(t, 0, f.codes.calls.Load())
}

func TestIssueProductLink_UnknownProduct(t *testing.T) {
	f := newAffiliateFixture(t)

	_, err := f.svc.IssueProductLink(context.Background(), "user-1", IssueLinkInput{ProductID: "00000000-0000-0000-0000-000000000000"})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.EqualValues(t, 0, f.codes.calls.Load())
}

func TestIssueProductLink_AfterDeactivationGetsSuffixedCode(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()

	first, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeactivateLink(ctx, "user-1", first.Link.ID))

	second, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID})
	require.NoError(t, err)
	assert.False(t, second.Existing)
	assert.Equal(t, first.Link.LinkCode+"-2", second.Link.LinkCode)

	links, err := f.svc.ListLinks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Contains(t, l.ShareURL, "?ref="+l.LinkCode)
	}
}

func TestDeactivateLink_ScopedToOwner(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()
	res, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID})
	require.NoError(t, err)

	other := &models.Affiliate{UserID: "user-2", ReferralCode: "ZZZZ9999", Status: models.AffiliateStatusActive}
	require.NoError(t, f.store.CreateAffiliate(ctx, other))

	assert.ErrorIs(t, f.svc.DeactivateLink(ctx, "user-2", res.Link.ID), ErrLinkNotFound)
	assert.ErrorIs(t, f.svc.DeactivateLink(ctx, "user-3", res.Link.ID), ErrAffiliateNotFound)
}

func TestAttributeClick_GeneralCode(t *testing.T) {
	f := newAffiliateFixture(t)

	click, err := f.svc.AttributeClick(context.Background(), ClickRequest{
		Code:         "ABCD2345",
		LandingPage:  "/products/linen-throw",
		ForwardedFor: "203.0.113.5, 10.0.0.1",
		UserAgent:    "Mozilla/5.0",
	})
	require.NoError(t, err)
	assert.Equal(t, f.aff.ID, click.AffiliateID)
	assert.Nil(t, click.ProductLinkID)
	assert.Nil(t, click.ProductID)
	assert.Equal(t, "203.0.113.5", click.IPAddress)
	assert.Equal(t, "", click.ReferrerURL)

	require.Len(t, f.store.Clicks(), 1)
}

func TestAttributeClick_ProductLinkCode(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()
	res, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID})
	require.NoError(t, err)

	click, err := f.svc.AttributeClick(ctx, ClickRequest{Code: res.Link.LinkCode, RealIP: "198.51.100.7"})
	require.NoError(t, err)
	assert.Equal(t, f.aff.ID, click.AffiliateID)
	require.NotNil(t, click.ProductLinkID)
	require.NotNil(t, click.ProductID)
	assert.Equal(t, res.Link.ID, *click.ProductLinkID)
	assert.Equal(t, f.product.ID, *click.ProductID)
	assert.Equal(t, "198.51.100.7", click.IPAddress)
}

func TestAttributeClick_Unresolvable(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()

	for _, code := range []string{"ABCD2345-DEADBEEF", "NOPE0000", ""} {
		_, err := f.svc.AttributeClick(ctx, ClickRequest{Code: code})
		assert.ErrorIs(t, err, ErrReferralNotFound, code)
	}

	pending := &models.Affiliate{UserID: "user-2", ReferralCode: "PEND1234", Status: models.AffiliateStatusPending}
	require.NoError(t, f.store.CreateAffiliate(ctx, pending))
	_, err := f.svc.AttributeClick(ctx, ClickRequest{Code: "PEND1234"})
	assert.ErrorIs(t, err, ErrReferralNotFound)

	assert.Empty(t, f.store.Clicks())
}

func TestAttributeClick_NoDeduplication(t *testing.T) {
	f := newAffiliateFixture(t)
	req := ClickRequest{Code: "ABCD2345", ForwardedFor: "203.0.113.5"}

	for i := 0; i < 3; i++ {
		_, err := f.svc.AttributeClick(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Len(t, f.store.Clicks(), 3)
}

func TestExtractClientIP(t *testing.T) {
	cases := []struct {
		name, forwarded, real, want string
	}{
		{"first forwarded hop", "203.0.113.5, 10.0.0.1", "", "203.0.113.5"},
		{"forwarded wins over real", "203.0.113.5", "198.51.100.7", "203.0.113.5"},
		{"real ip", "", "198.51.100.7", "198.51.100.7"},
		{"blank forwarded falls through", " , 10.0.0.1", "198.51.100.7", "198.51.100.7"},
		{"none", "", "", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractClientIP(tc.forwarded, tc.real))
		})
	}
}

func TestRecordConversion_UsesLinkRateWhenSet(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()
	rate := 0.2
	res, err := f.svc.IssueProductLink(ctx, "user-1", IssueLinkInput{ProductID: f.product.ID, CustomCommissionRate: &rate})
	require.NoError(t, err)

	sale, err := f.svc.RecordConversion(ctx, "order-1", res.Link.LinkCode, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.2, sale.CommissionRate)
	assert.Equal(t, 20.0, sale.CommissionAmount)
	require.NotNil(t, sale.ProductLinkID)
	assert.Equal(t, res.Link.ID, *sale.ProductLinkID)

	general, err := f.svc.RecordConversion(ctx, "order-2", "ABCD2345", 59.99)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCommissionRate, general.CommissionRate)
	assert.Equal(t, 6.0, general.CommissionAmount)
	assert.Nil(t, general.ProductLinkID)

	aff, err := f.svc.Dashboard(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, aff.TotalSales)
	assert.InDelta(t, 26.0, aff.TotalEarnings, 0.001)

	_, err = f.svc.RecordConversion(ctx, "order-3", "NOPE0000", 10)
	assert.ErrorIs(t, err, ErrReferralNotFound)
}

func TestApply(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAffiliateService(store, store, testSite)
	ctx := context.Background()

	aff, err := svc.Apply(ctx, "user-9", ApplyInput{PayoutEmail: "pay@b.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AffiliateStatusPending, aff.Status)
	assert.Len(t, aff.ReferralCode, 8)
	assert.NotContains(t, aff.ReferralCode, "-")
	assert.Equal(t, strings.ToUpper(aff.ReferralCode), aff.ReferralCode)
	assert.Equal(t, models.DefaultCommissionRate, aff.CommissionRate)

	_, err = svc.Apply(ctx, "user-9", ApplyInput{})
	assert.ErrorIs(t, err, ErrAffiliateExists)

	_, err = svc.Apply(ctx, "user-10", ApplyInput{PayoutEmail: "nope"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSetStatus(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewAffiliateService(store, store, testSite)
	ctx := context.Background()
	aff, err := svc.Apply(ctx, "user-9", ApplyInput{})
	require.NoError(t, err)

	out, err := svc.SetStatus(ctx, aff.ID, "active")
	require.NoError(t, err)
	assert.Equal(t, models.AffiliateStatusActive, out.Status)

	_, err = svc.SetStatus(ctx, aff.ID, "rejected")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.SetStatus(ctx, aff.ID, "banned")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.SetStatus(ctx, "missing", "active")
	assert.ErrorIs(t, err, ErrAffiliateNotFound)

	list, err := svc.List(ctx, "active")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRefreshCounters(t *testing.T) {
	f := newAffiliateFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.svc.AttributeClick(ctx, ClickRequest{Code: "ABCD2345"})
		require.NoError(t, err)
	}

	n, err := f.svc.RefreshCounters(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	aff, err := f.svc.Dashboard(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, aff.TotalClicks)
}
