package services

import (
	"context"
	"errors"
	"math"
	"time"

	"cozzyhub/middleware"
	"cozzyhub/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartService struct {
	DB *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{DB: db}
}

// CartView is a cart with its computed totals.
type CartView struct {
	Items    []models.CartItem `json:"items"`
	Subtotal float64           `json:"subtotal"`
	Count    int               `json:"count"`
}

// CartTotals sums line prices and units. Lines whose product is missing or
// inactive count for nothing.
func CartTotals(items []models.CartItem) (subtotal float64, count int) {
	for _, it := range items {
		if it.Product == nil || !it.Product.IsActive {
			continue
		}
		subtotal += it.Product.Price * float64(it.Quantity)
		count += it.Quantity
	}
	return roundCents(subtotal), count
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *CartService) load(ctx context.Context, userID string) (*CartView, error) {
	var items []models.CartItem
	err := s.DB.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CartItem{}
	}
	subtotal, count := CartTotals(items)
	return &CartView{Items: items, Subtotal: subtotal, Count: count}, nil
}

func (s *CartService) GetCart(c *fiber.Ctx) error {
	cart, err := s.load(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch cart"})
	}
	return c.JSON(cart)
}

type CartItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=99"`
}

// AddItem adds quantity units of a product, merging with an existing line.
func (s *CartService) AddItem(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var in CartItemInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}
	if _, err := uuid.Parse(in.ProductID); err != nil {
		return ErrorJSON(c, ErrProductNotFound)
	}

	err := s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ? AND is_active = ?", in.ProductID, true).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		var existing models.CartItem
		current := 0
		if err := tx.Where("user_id = ? AND product_id = ?", userID, product.ID).First(&existing).Error; err == nil {
			current = existing.Quantity
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if current+in.Quantity > product.Stock {
			return ErrInsufficientStock
		}

		item := models.CartItem{UserID: userID, ProductID: product.ID, Quantity: in.Quantity}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + EXCLUDED.quantity"),
				"updated_at": time.Now(),
			}),
		}).Create(&item).Error
	})
	if err != nil {
		return ErrorJSON(c, err)
	}

	cart, err := s.load(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch cart"})
	}
	return c.JSON(cart)
}

type CartQuantityInput struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

// UpdateItem sets a line's quantity. Zero removes the line.
func (s *CartService) UpdateItem(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	productID := c.Params("product_id")

	var in CartQuantityInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	db := s.DB.WithContext(c.UserContext())
	if in.Quantity == 0 {
		if err := db.Where("user_id = ? AND product_id = ?", userID, productID).Delete(&models.CartItem{}).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update cart"})
		}
	} else {
		var product models.Product
		if err := db.Select("id", "stock").First(&product, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrorJSON(c, ErrProductNotFound)
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
		}
		if in.Quantity > product.Stock {
			return ErrorJSON(c, ErrInsufficientStock)
		}
		res := db.Model(&models.CartItem{}).
			Where("user_id = ? AND product_id = ?", userID, productID).
			Update("quantity", in.Quantity)
		if res.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update cart"})
		}
		if res.RowsAffected == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "item not in cart"})
		}
	}

	cart, err := s.load(c.UserContext(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch cart"})
	}
	return c.JSON(cart)
}

func (s *CartService) RemoveItem(c *fiber.Ctx) error {
	err := s.DB.WithContext(c.UserContext()).
		Where("user_id = ? AND product_id = ?", middleware.UserID(c), c.Params("product_id")).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update cart"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PurgeStale deletes cart lines untouched since before cutoff.
func (s *CartService) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}
