// middleware/params.go
package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UUIDParam answers 404 with notFound when the route parameter is not a
// UUID. Ids are uuid columns, so such a value can never match a row.
func UUIDParam(param, notFound string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := uuid.Parse(c.Params(param)); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": notFound})
		}
		return c.Next()
	}
}
