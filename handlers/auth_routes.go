// handlers/auth_routes.go
package handlers

import (
	"errors"

	"cozzyhub/middleware"
	"cozzyhub/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func SetupAuthRoutes(app fiber.Router, auth *services.AuthService, limit fiber.Handler) {
	h := &AuthHandler{Auth: auth}
	limit = orPass(limit)

	// 🔓 Public
	app.Post("/api/auth/register", limit, h.Register)
	app.Post("/api/auth/login", limit, h.Login)
	app.Get("/api/auth/authorize/:token", h.Authorize)

	// 🔐 Session required, authorization not
	app.Get("/api/auth/me", middleware.UserContextMiddleware(auth), h.Me)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	res, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		switch {
		case services.HTTPStatus(err) == fiber.StatusBadRequest:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrProfileProvisioning):
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Error().Err(err).Msg("[AUTH] registration failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
		}
	}

	return c.JSON(fiber.Map{
		"success":           true,
		"message":           "Registration successful. Please check your email to authorize your account.",
		"authorization_url": res.AuthorizationURL,
		"auth_token":        res.AuthToken,
		"user": fiber.Map{
			"id":    res.UserID,
			"email": res.Email,
		},
	})
}

const authorizeRetryMessage = "Your link is still valid. Please open it again in a moment."

// Authorize redeems the emailed token and redirects to the account page.
func (h *AuthHandler) Authorize(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("[AUTH] authorization panicked")
			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Authorization failed",
				"message": authorizeRetryMessage,
			})
		}
	}()

	res, rerr := h.Auth.Redeem(c.UserContext(), c.Params("token"))
	switch {
	case rerr == nil:
		return c.Redirect(res.RedirectURL, fiber.StatusFound)
	case errors.Is(rerr, services.ErrInvalidTokenFormat):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid authorization token format",
			"message": "The authorization link is malformed. Please use the link from your email.",
		})
	case errors.Is(rerr, services.ErrTokenNotFound):
		return renderPage(c, fiber.StatusNotFound, tokenNotFoundPage)
	case errors.Is(rerr, services.ErrAuthorizeFailed):
		log.Error().Err(rerr).Msg("[AUTH] authorization update failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to authorize user",
			"message": authorizeRetryMessage,
		})
	default:
		log.Error().Err(rerr).Msg("[AUTH] authorization failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Authorization failed",
			"message": authorizeRetryMessage,
		})
	}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in services.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	res, err := h.Auth.Login(c.UserContext(), in)
	if err != nil {
		return services.ErrorJSON(c, err)
	}
	return c.JSON(res)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentProfile(c))
}

func orPass(h fiber.Handler) fiber.Handler {
	if h == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return h
}
