// handlers/store_routes.go
package handlers

import (
	"cozzyhub/middleware"
	"cozzyhub/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStoreRoutes(app fiber.Router, auth middleware.SessionVerifier, catalog *services.CatalogService, cart *services.CartService, checkout *services.CheckoutService) {
	productID := middleware.UUIDParam("id", services.ErrProductNotFound.Error())
	cartProductID := middleware.UUIDParam("product_id", services.ErrProductNotFound.Error())
	orderID := middleware.UUIDParam("id", services.ErrOrderNotFound.Error())

	// 🔓 Public catalog
	app.Get("/api/products", catalog.ListProducts)
	app.Get("/api/products/:key", catalog.GetProduct)
	app.Get("/api/products/:id/reviews", productID, catalog.ListReviews)
	app.Get("/api/categories", catalog.ListCategories)

	// 🔐 Authorized accounts only. Guards are attached per route: a guarded
	// "/api" group would also catch every route registered after it.
	user := middleware.UserContextMiddleware(auth)
	authorized := middleware.RequireAuthorized()

	app.Post("/api/products/:id/reviews", user, authorized, productID, catalog.CreateReview)

	app.Get("/api/cart", user, authorized, cart.GetCart)
	app.Post("/api/cart/items", user, authorized, cart.AddItem)
	app.Put("/api/cart/items/:product_id", user, authorized, cartProductID, cart.UpdateItem)
	app.Patch("/api/cart/items/:product_id", user, authorized, cartProductID, cart.UpdateItem)
	app.Delete("/api/cart/items/:product_id", user, authorized, cartProductID, cart.RemoveItem)

	app.Post("/api/checkout", user, authorized, checkout.Checkout)
	app.Get("/api/orders", user, authorized, checkout.ListOrders)
	app.Get("/api/orders/:id", user, authorized, orderID, checkout.GetOrder)
}

func SetupImportRoutes(app fiber.Router, imports *services.ImportService, importKey string) {
	app.Post("/api/products/import", middleware.ImportKeyMiddleware(importKey), imports.Import)
}
