package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cozzyhub/mailer"
	"cozzyhub/middleware"
	"cozzyhub/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	FreeShippingThreshold = 50.0
	StandardShippingFee   = 4.99

	// ReferralCookie holds the last referral code a visitor arrived with.
	ReferralCookie = "cozzy_ref"
)

// ShippingFee is free from FreeShippingThreshold upward.
func ShippingFee(subtotal float64) float64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return StandardShippingFee
}

type CheckoutService struct {
	DB         *gorm.DB
	Affiliates *AffiliateService
	Mail       EmailSender
}

func NewCheckoutService(db *gorm.DB, affiliates *AffiliateService, mail EmailSender) *CheckoutService {
	return &CheckoutService{DB: db, Affiliates: affiliates, Mail: mail}
}

type CheckoutInput struct {
	ShippingName    string `json:"shipping_name" validate:"required,max=120"`
	ShippingAddress string `json:"shipping_address" validate:"required,max=500"`
	Phone           string `json:"phone" validate:"max=40"`
	ReferralCode    string `json:"referral_code" validate:"max=64"`
}

// BuildOrder snapshots cart lines into a pending order. Every product must
// be active and hold enough stock.
func BuildOrder(userID string, items []models.CartItem, in CheckoutInput) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderStatusPending,
		ShippingName:    strings.TrimSpace(in.ShippingName),
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		Phone:           strings.TrimSpace(in.Phone),
	}
	if code := strings.TrimSpace(in.ReferralCode); code != "" {
		order.ReferralCode = &code
	}

	var subtotal float64
	for _, it := range items {
		p := it.Product
		if p == nil || !p.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if it.Quantity > p.Stock {
			return nil, fmt.Errorf("%w: %q has %d left", ErrInsufficientStock, p.Title, p.Stock)
		}
		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		line := roundCents(p.Price * float64(it.Quantity))
		order.Items = append(order.Items, models.OrderItem{
			ProductID: p.ID,
			Title:     p.Title,
			ImageURL:  image,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			LineTotal: line,
		})
		subtotal += line
	}

	order.Subtotal = roundCents(subtotal)
	order.ShippingFee = ShippingFee(order.Subtotal)
	order.Total = roundCents(order.Subtotal + order.ShippingFee)
	return order, nil
}

// PlaceOrder converts the user's cart into an order, decrementing stock in
// the same transaction. The affiliate conversion and the confirmation email
// run after commit and never fail the checkout.
func (s *CheckoutService) PlaceOrder(ctx context.Context, profile *models.Profile, in CheckoutInput) (*models.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", profile.ID).Order("created_at ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		var products []models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[string]*models.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}
		for i := range items {
			items[i].Product = byID[items[i].ProductID]
		}

		built, err := BuildOrder(profile.ID, items, in)
		if err != nil {
			return err
		}
		if err := tx.Create(built).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, it := range built.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", it.ProductID, it.Quantity).
				Update("stock", gorm.Expr("stock - ?", it.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: %q", ErrInsufficientStock, it.Title)
			}
			orderID := built.ID
			movement := models.StockMovement{
				ProductID:  it.ProductID,
				Delta:      -it.Quantity,
				StockAfter: byID[it.ProductID].Stock - it.Quantity,
				Reason:     "checkout",
				ActorID:    profile.ID,
				OrderID:    &orderID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", profile.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		order = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("order_id", order.ID).Str("user_id", profile.ID).Float64("total", order.Total).Msg("[CHECKOUT] order placed")

	if order.ReferralCode != nil && s.Affiliates != nil {
		if _, err := s.Affiliates.RecordConversion(ctx, order.ID, *order.ReferralCode, order.Total); err != nil {
			log.Warn().Err(err).Str("order_id", order.ID).Str("code", *order.ReferralCode).Msg("[CHECKOUT] referral not converted")
		}
	}
	s.sendConfirmation(ctx, profile, order)
	return order, nil
}

func (s *CheckoutService) sendConfirmation(ctx context.Context, profile *models.Profile, order *models.Order) {
	msg, err := mailer.OrderConfirmationMessage(profile.Email, profile.FullName, order)
	if err != nil {
		log.Warn().Err(err).Msg("[CHECKOUT] could not render confirmation email")
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Mail.Send(sendCtx, msg); err != nil {
		log.Warn().Err(err).Str("order_id", order.ID).Msg("[CHECKOUT] confirmation email failed")
	}
}

// Checkout is the HTTP entry to PlaceOrder. The referral code falls back to
// the referral cookie set by click tracking.
func (s *CheckoutService) Checkout(c *fiber.Ctx) error {
	var in CheckoutInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if in.ReferralCode == "" {
		in.ReferralCode = c.Cookies(ReferralCookie)
	}

	order, err := s.PlaceOrder(c.UserContext(), middleware.CurrentProfile(c), in)
	if err != nil {
		return ErrorJSON(c, err)
	}
	c.ClearCookie(ReferralCookie)
	return c.Status(fiber.StatusCreated).JSON(order)
}

// ListOrders returns the caller's orders, newest first.
func (s *CheckoutService) ListOrders(c *fiber.Ctx) error {
	page := ParsePage(c.Query("page"), c.Query("limit"))
	q := s.DB.WithContext(c.UserContext()).Model(&models.Order{}).Where("user_id = ?", middleware.UserID(c))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count orders"})
	}
	var orders []models.Order
	if err := q.Preload("Items").Order("created_at DESC").Limit(page.Size).Offset(page.Offset()).Find(&orders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch orders"})
	}
	return c.JSON(newPaged(orders, page, total))
}

func (s *CheckoutService) GetOrder(c *fiber.Ctx) error {
	var order models.Order
	err := s.DB.WithContext(c.UserContext()).
		Preload("Items").
		Where("id = ? AND user_id = ?", c.Params("id"), middleware.UserID(c)).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrorJSON(c, ErrOrderNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch order"})
	}
	return c.JSON(order)
}
