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
)

func TestUpdateOrderStatus_CancelRestocksAndVoidsSale(t *testing.T) {
	db := newTestDB(t)
	store := repository.NewStore(db)
	affiliates := NewAffiliateService(store, store, testSite)
	checkout := NewCheckoutService(db, affiliates, &recordingSender{})
	admin := NewAdminService(db, nil, affiliates, 5)
	ctx := context.Background()

	activeAffiliate(t, store, "ABCD2345")
	shopper := newProfile(false)
	throw := seedProduct(t, db, "Linen Throw", 20, 5)
	seedCart(t, db, shopper.ID, map[*models.Product]int{throw: 3})

	in := shipTo
	in.ReferralCode = "ABCD2345"
	order, err := checkout.PlaceOrder(ctx, shopper, in)
	require.NoError(t, err)
	require.Equal(t, 2, stockOf(t, db, throw.ID))

	staff := newProfile(true)
	app, session := newSessionApp(staff)
	app.Patch("/orders/:id/status", session, admin.UpdateOrderStatus)
	setStatus := func(id, status string) int {
		resp, err := app.Test(sessionRequest(fiber.MethodPatch, "/orders/"+id+"/status", `{"status":"`+status+`"}`))
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, setStatus(order.ID, "cancelled"))
	assert.Equal(t, 5, stockOf(t, db, throw.ID))

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)

	var sale models.AffiliateSale
	require.NoError(t, db.First(&sale, "order_id = ?", order.ID).Error)
	assert.Equal(t, models.SaleStatusCancelled, sale.Status)

	var restocks []models.StockMovement
	require.NoError(t, db.Where("order_id = ? AND delta > 0", order.ID).Find(&restocks).Error)
	require.Len(t, restocks, 1)
	assert.Equal(t, 3, restocks[0].Delta)
	assert.Equal(t, 5, restocks[0].StockAfter)
	assert.Equal(t, staff.ID, restocks[0].ActorID)

	assert.Equal(t, fiber.StatusConflict, setStatus(order.ID, "paid"))
	assert.Equal(t, 5, stockOf(t, db, throw.ID))
	assert.Equal(t, fiber.StatusNotFound, setStatus(uuid.NewString(), "paid"))
	assert.Equal(t, fiber.StatusBadRequest, setStatus(order.ID, "lost"))
}

func TestReviewModeration_RecomputesRating(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, nil, nil, 5)
	product := seedProduct(t, db, "Wool Blanket", 60, 3)

	first := &models.Review{ProductID: product.ID, UserID: uuid.NewString(), Rating: 4}
	second := &models.Review{ProductID: product.ID, UserID: uuid.NewString(), Rating: 5}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	app, session := newSessionApp(newProfile(true))
	app.Post("/reviews/:id/approve", session, admin.ApproveReview)
	app.Delete("/reviews/:id", session, admin.DeleteReview)
	call := func(method, path string) int {
		resp, err := app.Test(sessionRequest(method, path, ""))
		require.NoError(t, err)
		return resp.StatusCode
	}
	rating := func() (float64, int) {
		var p models.Product
		require.NoError(t, db.First(&p, "id = ?", product.ID).Error)
		return p.AverageRating, p.ReviewCount
	}

	assert.Equal(t, fiber.StatusOK, call(fiber.MethodPost, "/reviews/"+first.ID+"/approve"))
	avg, n := rating()
	assert.Equal(t, 4.0, avg)
	assert.Equal(t, 1, n)

	assert.Equal(t, fiber.StatusOK, call(fiber.MethodPost, "/reviews/"+second.ID+"/approve"))
	avg, n = rating()
	assert.Equal(t, 4.5, avg)
	assert.Equal(t, 2, n)

	assert.Equal(t, fiber.StatusNoContent, call(fiber.MethodDelete, "/reviews/"+first.ID))
	avg, n = rating()
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, n)

	assert.Equal(t, fiber.StatusNoContent, call(fiber.MethodDelete, "/reviews/"+second.ID))
	avg, n = rating()
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, n)

	assert.Equal(t, fiber.StatusNotFound, call(fiber.MethodDelete, "/reviews/"+first.ID))
}

func TestCreateProduct_KeepsInactiveFlag(t *testing.T) {
	db := newTestDB(t)
	admin := NewAdminService(db, nil, nil, 5)

	app, session := newSessionApp(newProfile(true))
	app.Post("/products", session, admin.CreateProduct)

	resp, err := app.Test(sessionRequest(fiber.MethodPost, "/products", `{"title":"Draft Cushion","price":12.5,"stock":3,"is_active":false}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var stored models.Product
	require.NoError(t, db.First(&stored, "slug = ?", "draft-cushion").Error)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 3, stored.Stock)
}
