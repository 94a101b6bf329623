// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ImportKeyMiddleware guards the extension import endpoint with a shared
// key. An empty key leaves the endpoint open.
func ImportKeyMiddleware(expectedKey string) fiber.Handler {
	if expectedKey == "" {
		log.Warn().Msg("[IMPORT_AUTH] IMPORT_API_KEY not set, product import endpoint is unauthenticated")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			authHeader = c.Get("X-Import-Key")
		}
		if authHeader == "" {
			log.Warn().Str("path", c.Path()).Msg("[IMPORT_AUTH] missing import key")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "import key missing",
			})
		}

		// Accept "Bearer <key>" or the raw key.
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedKey)) != 1 {
			log.Warn().Str("path", c.Path()).Str("ip", c.IP()).Msg("[IMPORT_AUTH] invalid import key")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid import key",
			})
		}
		return c.Next()
	}
}
