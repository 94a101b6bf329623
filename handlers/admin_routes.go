// handlers/admin_routes.go
package handlers

import (
	"cozzyhub/middleware"
	"cozzyhub/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app fiber.Router, auth middleware.SessionVerifier, admin *services.AdminService) {
	// 🔐 Admin accounts only
	g := app.Group("/api/admin", middleware.UserContextMiddleware(auth), middleware.RequireAdmin())

	product := middleware.UUIDParam("id", services.ErrProductNotFound.Error())
	category := middleware.UUIDParam("id", "category not found")
	order := middleware.UUIDParam("id", services.ErrOrderNotFound.Error())
	review := middleware.UUIDParam("id", "review not found")
	affiliate := middleware.UUIDParam("id", services.ErrAffiliateNotFound.Error())

	g.Get("/products", admin.ListProducts)
	g.Post("/products", admin.CreateProduct)
	g.Put("/products/:id", product, admin.UpdateProduct)
	g.Patch("/products/:id", product, admin.UpdateProduct)
	g.Delete("/products/:id", product, admin.DeleteProduct)
	g.Post("/products/:id/image", product, admin.UploadProductImage)

	g.Post("/categories", admin.CreateCategory)
	g.Put("/categories/:id", category, admin.UpdateCategory)
	g.Delete("/categories/:id", category, admin.DeleteCategory)

	g.Get("/orders", admin.ListOrders)
	g.Get("/orders/:id", order, admin.GetOrder)
	g.Patch("/orders/:id/status", order, admin.UpdateOrderStatus)

	g.Post("/inventory/:id/adjust", product, admin.AdjustStock)
	g.Get("/inventory/:id/movements", product, admin.StockMovements)
	g.Get("/inventory/alerts", admin.StockAlerts)

	g.Get("/reviews/pending", admin.ListPendingReviews)
	g.Post("/reviews/:id/approve", review, admin.ApproveReview)
	g.Delete("/reviews/:id", review, admin.DeleteReview)

	g.Get("/reports/sales", admin.SalesSummary)
	g.Get("/reports/top-products", admin.TopProducts)
	g.Get("/reports/affiliates", admin.AffiliateReport)

	g.Get("/affiliates", admin.ListAffiliates)
	g.Patch("/affiliates/:id/status", affiliate, admin.SetAffiliateStatus)
}
