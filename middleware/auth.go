// middleware/auth.go
package middleware

import (
	"context"
	"strings"

	"cozzyhub/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	localUserID  = "user_id"
	localProfile = "profile"
)

// SessionVerifier resolves a bearer session to the current account record.
type SessionVerifier interface {
	ParseSession(raw string) (string, error)
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// UserContextMiddleware requires a valid session and attaches the account.
// The profile is re-read on every request so authorization and admin flags
// are never taken from the token.
func UserContextMiddleware(auth SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		userID, err := auth.ParseSession(raw)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("[USER_CTX] rejected session")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
		}
		profile, err := auth.Profile(c.UserContext(), userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("[USER_CTX] session for missing profile")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired session"})
		}

		c.Locals(localUserID, userID)
		c.Locals(localProfile, profile)
		return c.Next()
	}
}

// OptionalUserContext attaches the account when a valid session is present
// and lets anonymous requests through.
func OptionalUserContext(auth SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := bearerToken(c); raw != "" {
			if userID, err := auth.ParseSession(raw); err == nil {
				if profile, err := auth.Profile(c.UserContext(), userID); err == nil {
					c.Locals(localUserID, userID)
					c.Locals(localProfile, profile)
				}
			}
		}
		return c.Next()
	}
}

// RequireAuthorized admits accounts that redeemed their authorization link.
func RequireAuthorized() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentProfile(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		if !p.IsAuthorized {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "account not authorized",
				"message": "Please confirm your account using the link we emailed you.",
			})
		}
		return c.Next()
	}
}

// RequireAdmin admits admin accounts only.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := CurrentProfile(c)
		if p == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}
		if !p.IsAdmin {
			log.Warn().Str("user_id", p.ID).Str("path", c.Path()).Msg("[USER_CTX] non-admin on admin route")
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}

// CurrentProfile is the account attached by UserContextMiddleware, or nil.
func CurrentProfile(c *fiber.Ctx) *models.Profile {
	p, _ := c.Locals(localProfile).(*models.Profile)
	return p
}

// UserID is the id attached by UserContextMiddleware, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}
