package services

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"cozzyhub/middleware"
	"cozzyhub/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

// ParsePage clamps raw page/limit query values.
func ParsePage(rawPage, rawLimit string) Page {
	n, err := strconv.Atoi(rawPage)
	if err != nil || n < 1 {
		n = 1
	}
	size, err := strconv.Atoi(rawLimit)
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: n, Size: size}
}

// Paged is the list envelope every paginated endpoint returns.
type Paged[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newPaged[T any](items []T, p Page, total int64) Paged[T] {
	if items == nil {
		items = []T{}
	}
	return Paged[T]{
		Items:      items,
		Page:       p.Number,
		Limit:      p.Size,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Size))),
	}
}

// ProductSort is an ORDER BY clause chosen from a closed set of sort keys.
func ProductSort(key string) string {
	switch key {
	case "price_asc":
		return "price ASC"
	case "price_desc":
		return "price DESC"
	case "rating":
		return "average_rating DESC, review_count DESC"
	case "title":
		return "title ASC"
	default:
		return "created_at DESC"
	}
}

// ListProducts returns active products. Query: category (slug), q, sort, page, limit.
func (s *CatalogService) ListProducts(c *fiber.Ctx) error {
	page := ParsePage(c.Query("page"), c.Query("limit"))

	q := s.DB.WithContext(c.UserContext()).Model(&models.Product{}).Where("products.is_active = ?", true)
	if cat := c.Query("category"); cat != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id AND categories.deleted_at IS NULL").
			Where("categories.slug = ?", cat)
	}
	if term := models.FoldSearch(c.Query("q")); term != "" {
		q = q.Where("products.search_text LIKE ?", "%"+escapeLike(term)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count products"})
	}

	var products []models.Product
	err := q.Preload("Category").
		Order("products." + ProductSort(c.Query("sort"))).
		Limit(page.Size).Offset(page.Offset()).
		Find(&products).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch products"})
	}
	return c.JSON(newPaged(products, page, total))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetProduct looks a product up by id or slug.
func (s *CatalogService) GetProduct(c *fiber.Ctx) error {
	key := c.Params("key")

	q := s.DB.WithContext(c.UserContext()).Preload("Category").Where("is_active = ?", true)
	if _, err := uuid.Parse(key); err == nil {
		q = q.Where("id = ?", key)
	} else {
		q = q.Where("slug = ?", key)
	}

	var product models.Product
	if err := q.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
	}
	return c.JSON(product)
}

func (s *CatalogService) ListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := s.DB.WithContext(c.UserContext()).Order("name ASC").Find(&categories).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch categories"})
	}
	return c.JSON(categories)
}

// ListReviews returns the approved reviews of a product, newest first.
func (s *CatalogService) ListReviews(c *fiber.Ctx) error {
	var reviews []models.Review
	err := s.DB.WithContext(c.UserContext()).
		Where("product_id = ? AND is_approved = ?", c.Params("id"), true).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch reviews"})
	}
	return c.JSON(reviews)
}

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateReview submits a review for moderation. One review per user and product.
func (s *CatalogService) CreateReview(c *fiber.Ctx) error {
	profile := middleware.CurrentProfile(c)
	productID := c.Params("id")

	var in ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	db := s.DB.WithContext(c.UserContext())
	var count int64
	if err := db.Model(&models.Product{}).Where("id = ? AND is_active = ?", productID, true).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch product"})
	}
	if count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "product not found"})
	}

	if err := db.Model(&models.Review{}).Where("product_id = ? AND user_id = ?", productID, profile.ID).Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to check reviews"})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "you have already reviewed this product"})
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    profile.ID,
		UserName:  profile.FullName,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	}
	if err := db.Create(review).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save review"})
	}

	log.Info().Str("product_id", productID).Str("user_id", profile.ID).Msg("[CATALOG] review submitted for moderation")
	return c.Status(fiber.StatusCreated).JSON(review)
}
