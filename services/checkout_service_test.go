package services

import (
	"context"
	"testing"

	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var shipTo = CheckoutInput{ShippingName: "Test Shopper", ShippingAddress: "1 Main St, Springfield"}

func countRows(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func activeAffiliate(t *testing.T, store *repository.Store, code string) *models.Affiliate {
	t.Helper()
	aff := &models.Affiliate{
		UserID:         uuid.NewString(),
		ReferralCode:   code,
		Status:         models.AffiliateStatusActive,
		CommissionRate: 0.1,
	}
	require.NoError(t, store.CreateAffiliate(context.Background(), aff))
	return aff
}

func TestPlaceOrder_DecrementsStockAndClearsCart(t *testing.T) {
	db := newTestDB(t)
	mail := &recordingSender{}
	svc := NewCheckoutService(db, nil, mail)
	profile := newProfile(false)

	throw := seedProduct(t, db, "Linen Throw", 20, 5)
	mug := seedProduct(t, db, "Stoneware Mug", 15, 2)
	seedCart(t, db, profile.ID, map[*models.Product]int{throw: 2, mug: 1})

	order, err := svc.PlaceOrder(context.Background(), profile, shipTo)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 55.0, order.Subtotal)
	assert.Equal(t, 0.0, order.ShippingFee)
	assert.Equal(t, 55.0, order.Total)

	assert.Equal(t, 3, stockOf(t, db, throw.ID))
	assert.Equal(t, 1, stockOf(t, db, mug.ID))
	assert.Zero(t, countRows(t, db, &models.CartItem{}, "user_id = ?", profile.ID))

	var stored models.Order
	require.NoError(t, db.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	assert.Len(t, stored.Items, 2)

	var movements []models.StockMovement
	require.NoError(t, db.Where("order_id = ?", order.ID).Order("delta ASC").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, throw.ID, movements[0].ProductID)
	assert.Equal(t, -2, movements[0].Delta)
	assert.Equal(t, 3, movements[0].StockAfter)
	assert.Equal(t, mug.ID, movements[1].ProductID)
	assert.Equal(t, 1, movements[1].StockAfter)

	sent := mail.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, profile.Email, sent[0].To)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, nil, &recordingSender{})

	_, err := svc.PlaceOrder(context.Background(), newProfile(false), shipTo)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, countRows(t, db, &models.Order{}, ""))
}

func TestCheckout_InsufficientStockIsConflictAndWritesNothing(t *testing.T) {
	db := newTestDB(t)
	svc := NewCheckoutService(db, nil, &recordingSender{})
	profile := newProfile(false)

	vase := seedProduct(t, db, "Ceramic Vase", 30, 4)
	lamp := seedProduct(t, db, "Rattan Lamp", 45, 1)
	seedCart(t, db, profile.ID, map[*models.Product]int{vase: 1, lamp: 2})

	app, session := newSessionApp(profile)
	app.Post("/api/checkout", session, svc.Checkout)

	resp, err := app.Test(sessionRequest(fiber.MethodPost, "/api/checkout", `{"shipping_name":"Test Shopper","shipping_address":"1 Main St"}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	assert.Equal(t, 4, stockOf(t, db, vase.ID))
	assert.Equal(t, 1, stockOf(t, db, lamp.ID))
	assert.Equal(t, int64(2), countRows(t, db, &models.CartItem{}, "user_id = ?", profile.ID))
	assert.Zero(t, countRows(t, db, &models.Order{}, ""))
	assert.Zero(t, countRows(t, db, &models.StockMovement{}, ""))
}

func TestPlaceOrder_RecordsReferralConversion(t *testing.T) {
	db := newTestDB(t)
	store := repository.NewStore(db)
	affiliates := NewAffiliateService(store, store, testSite)
	svc := NewCheckoutService(db, affiliates, &recordingSender{})
	ctx := context.Background()

	aff := activeAffiliate(t, store, "ABCD2345")
	profile := newProfile(false)
	vase := seedProduct(t, db, "Ceramic Vase", 30, 4)
	seedCart(t, db, profile.ID, map[*models.Product]int{vase: 1})

	in := shipTo
	in.ReferralCode = " ABCD2345 "
	order, err := svc.PlaceOrder(ctx, profile, in)
	require.NoError(t, err)
	assert.Equal(t, 34.99, order.Total)

	var sale models.AffiliateSale
	require.NoError(t, db.First(&sale, "order_id = ?", order.ID).Error)
	assert.Equal(t, aff.ID, sale.AffiliateID)
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	assert.Equal(t, 34.99, sale.OrderTotal)
	assert.Equal(t, 3.5, sale.CommissionAmount)

	got, err := store.AffiliateByID(ctx, aff.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalSales)
	assert.Equal(t, 3.5, got.TotalEarnings)
}

func TestPlaceOrder_UnknownReferralStillPlacesOrder(t *testing.T) {
	db := newTestDB(t)
	store := repository.NewStore(db)
	svc := NewCheckoutService(db, NewAffiliateService(store, store, testSite), &recordingSender{})
	profile := newProfile(false)

	mug := seedProduct(t, db, "Stoneware Mug", 15, 2)
	seedCart(t, db, profile.ID, map[*models.Product]int{mug: 1})

	in := shipTo
	in.ReferralCode = "NOPE2345"
	order, err := svc.PlaceOrder(context.Background(), profile, in)
	require.NoError(t, err)
	assert.Equal(t, 1, stockOf(t, db, mug.ID))
	assert.Zero(t, countRows(t, db, &models.AffiliateSale{}, "order_id = ?", order.ID))
}
