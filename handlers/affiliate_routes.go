// handlers/affiliate_routes.go
package handlers

import (
	"strings"
	"time"

	"cozzyhub/middleware"
	"cozzyhub/services"

	"github.com/gofiber/fiber/v2"
)

// ReferralCookieAge is how long a tracked referral code survives in the browser.
const ReferralCookieAge = 30 * 24 * time.Hour

type AffiliateHandler struct {
	Affiliates *services.AffiliateService
}

func SetupAffiliateRoutes(app fiber.Router, auth middleware.SessionVerifier, affiliates *services.AffiliateService, limit fiber.Handler) {
	h := &AffiliateHandler{Affiliates: affiliates}

	// 🔓 Click tracking, called by the storefront on any ?ref= landing
	app.Post("/api/affiliate/track", orPass(limit), h.Track)

	// 🔐 Authorized accounts only
	secured := app.Group("/api/affiliate", middleware.UserContextMiddleware(auth), middleware.RequireAuthorized())
	secured.Post("/apply", h.Apply)
	secured.Get("/dashboard", h.Dashboard)
	secured.Post("/links", h.IssueLink)
	secured.Get("/links", h.ListLinks)
	secured.Delete("/links/:id", middleware.UUIDParam("id", services.ErrLinkNotFound.Error()), h.DeactivateLink)
}

func (h *AffiliateHandler) Apply(c *fiber.Ctx) error {
	var in services.ApplyInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	aff, err := h.Affiliates.Apply(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return services.ErrorJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(aff)
}

func (h *AffiliateHandler) Dashboard(c *fiber.Ctx) error {
	aff, err := h.Affiliates.Dashboard(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return services.ErrorJSON(c, err)
	}
	return c.JSON(aff)
}

// IssueLink answers 201 for a new link and 200 when the caller already had one.
func (h *AffiliateHandler) IssueLink(c *fiber.Ctx) error {
	var in services.IssueLinkInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	res, err := h.Affiliates.IssueProductLink(c.UserContext(), middleware.UserID(c), in)
	if err != nil {
		return services.ErrorJSON(c, err)
	}

	status, message := fiber.StatusCreated, "link created"
	if res.Existing {
		status, message = fiber.StatusOK, "already exists"
	}
	return c.Status(status).JSON(fiber.Map{
		"success":   true,
		"message":   message,
		"link":      res.Link,
		"share_url": res.ShareURL,
		"existing":  res.Existing,
	})
}

func (h *AffiliateHandler) ListLinks(c *fiber.Ctx) error {
	links, err := h.Affiliates.ListLinks(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return services.ErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{"links": links})
}

func (h *AffiliateHandler) DeactivateLink(c *fiber.Ctx) error {
	if err := h.Affiliates.DeactivateLink(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return services.ErrorJSON(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type trackInput struct {
	Code        string `json:"code"`
	LandingPage string `json:"landing_page"`
}

// Track records one click for the presented code and remembers the code in a
// cookie so checkout can attribute the order.
func (h *AffiliateHandler) Track(c *fiber.Ctx) error {
	var in trackInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	if in.Code == "" {
		in.Code = c.Query("ref")
	}
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}

	click, err := h.Affiliates.AttributeClick(c.UserContext(), services.ClickRequest{
		Code:         in.Code,
		LandingPage:  in.LandingPage,
		ForwardedFor: c.Get(fiber.HeaderXForwardedFor),
		RealIP:       c.Get("X-Real-IP"),
		UserAgent:    c.Get(fiber.HeaderUserAgent),
		Referer:      c.Get(fiber.HeaderReferer),
	})
	if err != nil {
		return services.ErrorJSON(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.ReferralCookie,
		Value:    in.Code,
		Path:     "/",
		Expires:  time.Now().Add(ReferralCookieAge),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{
		"success":      true,
		"affiliate_id": click.AffiliateID,
		"product_id":   click.ProductID,
	})
}
