package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartLine(p *models.Product, qty int) models.CartItem {
	id := ""
	if p != nil {
		id = p.ID
	}
	return models.CartItem{ProductID: id, Quantity: qty, Product: p}
}

func TestBuildOrder(t *testing.T) {
	throw := &models.Product{ID: "p1", Title: "Linen Throw", Price: 19.99, Stock: 5, IsActive: true, Images: []string{"https://cdn/x.jpg"}}
	mug := &models.Product{ID: "p2", Title: "Mug", Price: 5, Stock: 1, IsActive: true}

	order, err := BuildOrder("u1", []models.CartItem{cartLine(throw, 2), cartLine(mug, 1)}, CheckoutInput{
		ShippingName: " Ada ", ShippingAddress: "1 Main St", ReferralCode: " ABCD2345 ",
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "Ada", order.ShippingName)
	require.NotNil(t, order.ReferralCode)
	assert.Equal(t, "ABCD2345", *order.ReferralCode)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 39.98, order.Items[0].LineTotal)
	assert.Equal(t, "https://cdn/x.jpg", order.Items[0].ImageURL)
	assert.Equal(t, 44.98, order.Subtotal)
	assert.Equal(t, StandardShippingFee, order.ShippingFee)
	assert.Equal(t, 49.97, order.Total)
}

func TestBuildOrder_Rejections(t *testing.T) {
	in := CheckoutInput{ShippingName: "Ada", ShippingAddress: "1 Main St"}

	_, err := BuildOrder("u1", nil, in)
	assert.ErrorIs(t, err, ErrEmptyCart)

	low := &models.Product{ID: "p1", Title: "Lamp", Price: 10, Stock: 1, IsActive: true}
	_, err = BuildOrder("u1", []models.CartItem{cartLine(low, 2)}, in)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	inactive := &models.Product{ID: "p2", Title: "Old", Price: 10, Stock: 9}
	_, err = BuildOrder("u1", []models.CartItem{cartLine(inactive, 1)}, in)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = BuildOrder("u1", []models.CartItem{cartLine(nil, 1)}, in)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestShippingFee(t *testing.T) {
	assert.Equal(t, StandardShippingFee, ShippingFee(49.99))
	assert.Equal(t, 0.0, ShippingFee(50))
}

func TestCartTotals(t *testing.T) {
	items := []models.CartItem{
		cartLine(&models.Product{Price: 0.1, IsActive: true}, 3),
		cartLine(&models.Product{Price: 20, IsActive: true}, 1),
		cartLine(&models.Product{Price: 99, IsActive: false}, 1),
		cartLine(nil, 4),
	}
	subtotal, count := CartTotals(items)
	assert.Equal(t, 20.3, subtotal)
	assert.Equal(t, 4, count)
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Size: defaultPageSize}, ParsePage("", ""))
	assert.Equal(t, Page{Number: 3, Size: 10}, ParsePage("3", "10"))
	assert.Equal(t, Page{Number: 1, Size: maxPageSize}, ParsePage("-2", "1000"))
	assert.Equal(t, 20, ParsePage("3", "10").Offset())

	paged := newPaged([]int(nil), Page{Number: 1, Size: 10}, 21)
	assert.Equal(t, 3, paged.TotalPages)
	assert.NotNil(t, paged.Items)
}

func TestProductSort(t *testing.T) {
	assert.Equal(t, "price ASC", ProductSort("price_asc"))
	assert.Equal(t, "price DESC", ProductSort("price_desc"))
	assert.Equal(t, "created_at DESC", ProductSort("; DROP TABLE products"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off`, escapeLike("50%_off"))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&ValidationError{Message: "x"}, fiber.StatusBadRequest},
		{ErrInvalidTokenFormat, fiber.StatusBadRequest},
		{ErrEmailTaken, fiber.StatusBadRequest},
		{ErrInvalidCredentials, fiber.StatusUnauthorized},
		{ErrAffiliateNotActive, fiber.StatusForbidden},
		{ErrProductNotFound, fiber.StatusNotFound},
		{fmt.Errorf("wrap: %w", repository.ErrNotFound), fiber.StatusNotFound},
		{ErrAffiliateExists, fiber.StatusConflict},
		{fmt.Errorf("%w: low", ErrInsufficientStock), fiber.StatusConflict},
		{errors.New("boom"), fiber.StatusInternalServerError},
		{fmt.Errorf("%w: db gone", ErrAuthorizeFailed), fiber.StatusInternalServerError},
		{ErrProfileProvisioning, fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestSlugCandidate(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "linen-throw-blanket", SlugCandidate("Linen Throw Blanket!", false, now))
	assert.Equal(t, "linen-throw-blanket-1700000000123", SlugCandidate("Linen Throw Blanket!", true, now))
	assert.Equal(t, "edredon-creme", SlugCandidate("Édredon Crème", false, now))
	assert.Equal(t, "item", SlugCandidate("!!!", false, now))
}

func TestNormalizeCategoryName(t *testing.T) {
	assert.Equal(t, "Home Decor", NormalizeCategoryName("  home   DECOR "))
	assert.Equal(t, "", NormalizeCategoryName("   "))
}

func TestBuildStockAlerts(t *testing.T) {
	products := []models.Product{
		{ID: "a", Title: "A", Stock: 5},
		{ID: "b", Title: "B", Stock: 0},
		{ID: "c", Title: "C", Stock: 2},
		{ID: "d", Title: "D", Stock: 40},
		{ID: "e", Title: "E", Stock: 4},
	}
	alerts := BuildStockAlerts(products, 5)
	require.Len(t, alerts, 4)
	assert.Equal(t, "b", alerts[0].ProductID)
	assert.Equal(t, models.StockOutOfStock, alerts[0].Severity)
	assert.Equal(t, "c", alerts[1].ProductID)
	assert.Equal(t, models.StockCritical, alerts[1].Severity)
	assert.Equal(t, "e", alerts[2].ProductID)
	assert.Equal(t, models.StockLow, alerts[3].Severity)
}

func TestRevenueStatuses(t *testing.T) {
	got := RevenueStatuses()
	assert.NotContains(t, got, models.OrderStatusCancelled)
	assert.NotContains(t, got, models.OrderStatusRefunded)
	assert.Contains(t, got, models.OrderStatusDelivered)
}

func TestReportRange(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	from, to, err := ReportRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, now, to)
	assert.Equal(t, now.AddDate(0, 0, -30), from)

	from, to, err = ReportRange("2026-03-01", "2026-03-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), to)

	_, _, err = ReportRange("2026-04-01", "2026-03-01", now)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, _, err = ReportRange("yesterday", "", now)
	assert.True(t, errors.As(err, &verr))
}

type fakeObjects struct {
	keys []string
	fail map[int]bool
}

func (f *fakeObjects) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	n := len(f.keys)
	f.keys = append(f.keys, key)
	if f.fail[n] {
		return "", errors.New("bucket unavailable")
	}
	return "https://cdn.example.com/" + key, nil
}

func fetchOK(_ context.Context, url string) ([]byte, string, error) {
	if strings.Contains(url, "broken") {
		return nil, "", errors.New("404")
	}
	return []byte("img"), "image/png", nil
}

func TestRehostImages(t *testing.T) {
	objects := &fakeObjects{}
	svc := &ImportService{Objects: objects, fetch: fetchOK}

	var urls []string
	for i := 0; i < 8; i++ {
		urls = append(urls, fmt.Sprintf("https://shop.example.com/img%d.jpg", i))
	}
	urls[1] = "https://shop.example.com/broken.jpg"

	got := svc.RehostImages(context.Background(), urls)
	assert.Len(t, got, MaxImportImages-1)
	assert.Len(t, objects.keys, MaxImportImages-1)
	for _, u := range got {
		assert.True(t, strings.HasPrefix(u, "https://cdn.example.com/products/"), u)
		assert.True(t, strings.HasSuffix(u, ".jpg"), u)
	}
}

func TestRehostImages_FallsBackToOriginals(t *testing.T) {
	objects := &fakeObjects{fail: map[int]bool{0: true, 1: true}}
	svc := &ImportService{Objects: objects, fetch: fetchOK}
	urls := []string{"https://shop.example.com/a.jpg", " ", "https://shop.example.com/b.jpg"}

	got := svc.RehostImages(context.Background(), urls)
	assert.Equal(t, []string{"https://shop.example.com/a.jpg", "https://shop.example.com/b.jpg"}, got)

	assert.Equal(t, []string{}, svc.RehostImages(context.Background(), nil))
}
