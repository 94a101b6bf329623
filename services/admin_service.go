package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cozzyhub/middleware"
	"cozzyhub/models"
	"cozzyhub/repository"
	"cozzyhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminService backs the /api/admin back office. Every route is behind
// RequireAdmin.
type AdminService struct {
	DB                *gorm.DB
	Objects           utils.ObjectStore
	Affiliates        *AffiliateService
	LowStockThreshold int
}

func NewAdminService(db *gorm.DB, objects utils.ObjectStore, affiliates *AffiliateService, lowStock int) *AdminService {
	return &AdminService{DB: db, Objects: objects, Affiliates: affiliates, LowStockThreshold: lowStock}
}

// ---- products ----

type ProductInput struct {
	Title             *string           `json:"title" validate:"omitempty,min=1,max=300"`
	Description       *string           `json:"description"`
	Price             *float64          `json:"price" validate:"omitempty,gte=0"`
	CompareAtPrice    *float64          `json:"compare_at_price" validate:"omitempty,gte=0"`
	Stock             *int              `json:"stock" validate:"omitempty,gte=0"`
	CategoryID        *string           `json:"category_id"`
	Images            []string          `json:"images" validate:"omitempty,max=12,dive,url"`
	Color             *string           `json:"color"`
	Highlights        []string          `json:"product_highlights"`
	AdditionalDetails map[string]string `json:"additional_details"`
	IsActive          *bool             `json:"is_active"`
}

func (in ProductInput) apply(p *models.Product) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.CompareAtPrice != nil {
		p.CompareAtPrice = in.CompareAtPrice
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			p.CategoryID = nil
		} else {
			p.CategoryID = in.CategoryID
		}
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.Color != nil {
		p.Color = *in.Color
	}
	if in.Highlights != nil {
		p.Highlights = in.Highlights
	}
	if in.AdditionalDetails != nil {
		p.AdditionalDetails = in.AdditionalDetails
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

// ListProducts includes inactive products. Query: q, status (active|inactive), page, limit.
func (s *AdminService) ListProducts(c *fiber.Ctx) error {
	page := ParsePage(c.Query("page"), c.Query("limit"))
	q := s.DB.WithContext(c.UserContext()).Model(&models.Product{})
	if term := models.FoldSearch(c.Query("q")); term != "" {
		q = q.Where("search_text LIKE ?", "%"+escapeLike(term)+"%")
	}
	switch c.Query("status") {
	case "active":
		q = q.Where("is_active = ?", true)
	case "inactive":
		q = q.Where("is_active = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count products"})
	}
	var products []models.Product
	if err := q.Preload("Category").Order("created_at DESC").Limit(page.Size).Offset(page.Offset()).Find(&products).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch products"})
	}
	return c.JSON(newPaged(products, page, total))
}

func (s *AdminService) CreateProduct(c *fiber.Ctx) error {
	var in ProductInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}
	if in.Price == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price is required"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	product := &models.Product{IsActive: true, Images: []string{}}
	in.apply(product)

	ctx := c.UserContext()
	sl, err := uniqueSlug(ctx, s.DB, &models.Product{}, product.Title)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate slug"})
	}
	product.Slug = sl

	if err := s.DB.WithContext(ctx).Create(product).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create product"})
	}
	log.Info().Str("product_id", product.ID).Str("actor", middleware.UserID(c)).Msg("[ADMIN] product created")
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (s *AdminService) findProduct(c *fiber.Ctx) (*models.Product, error) {
	var product models.Product
	if err := s.DB.WithContext(c.UserContext()).First(&product, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// UpdateProduct applies a partial update. Stock changes made here are
// recorded as stock movements.
func (s *AdminService) UpdateProduct(c *fiber.Ctx) error {
	var in ProductInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	product, err := s.findProduct(c)
	if err != nil {
		return ErrorJSON(c, err)
	}
	before := product.Stock
	in.apply(product)

	err = s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(product).Error; err != nil {
			return err
		}
		if delta := product.Stock - before; delta != 0 {
			return tx.Create(&models.StockMovement{
				ProductID:  product.ID,
				Delta:      delta,
				StockAfter: product.Stock,
				Reason:     "product edit",
				ActorID:    middleware.UserID(c),
			}).Error
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update product"})
	}
	return c.JSON(product)
}

// DeleteProduct soft-deletes a product.
func (s *AdminService) DeleteProduct(c *fiber.Ctx) error {
	res := s.DB.WithContext(c.UserContext()).Delete(&models.Product{}, "id = ?", c.Params("id"))
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete product"})
	}
	if res.RowsAffected == 0 {
		return ErrorJSON(c, ErrProductNotFound)
	}
	log.Info().Str("product_id", c.Params("id")).Str("actor", middleware.UserID(c)).Msg("[ADMIN] product deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadProductImage stores the multipart "image" field and appends its URL
// to the product's images.
func (s *AdminService) UploadProductImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}
	if file.Size > utils.MaxDownloadBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image too large (max 10MB)"})
	}

	product, err := s.findProduct(c)
	if err != nil {
		return ErrorJSON(c, err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = utils.ImageExt("", file.Header.Get("Content-Type"))
	}
	key := "products/" + uuid.NewString() + ext
	url, err := utils.UploadMultipart(c.UserContext(), s.Objects, file, key)
	if err != nil {
		log.Error().Err(err).Str("product_id", product.ID).Msg("[ADMIN] image upload failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload image"})
	}

	product.Images = append(product.Images, url)
	if err := s.DB.WithContext(c.UserContext()).Model(product).Update("images", product.Images).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save image"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url, "images": product.Images})
}

// ---- categories ----

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

func (s *AdminService) CreateCategory(c *fiber.Ctx) error {
	var in CategoryInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	ctx := c.UserContext()
	sl, err := uniqueSlug(ctx, s.DB, &models.Category{}, in.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to generate slug"})
	}
	category := &models.Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        sl,
		Description: in.Description,
		ImageURL:    in.ImageURL,
	}
	if err := s.DB.WithContext(ctx).Create(category).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create category"})
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory keeps the slug stable so storefront URLs survive renames.
func (s *AdminService) UpdateCategory(c *fiber.Ctx) error {
	var in CategoryInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	res := s.DB.WithContext(c.UserContext()).
		Model(&models.Category{}).
		Where("id = ?", c.Params("id")).
		Updates(map[string]any{
			"name":        strings.TrimSpace(in.Name),
			"description": in.Description,
			"image_url":   in.ImageURL,
		})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update category"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
	}

	var category models.Category
	if err := s.DB.WithContext(c.UserContext()).First(&category, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch category"})
	}
	return c.JSON(category)
}

// DeleteCategory soft-deletes a category and detaches its products.
func (s *AdminService) DeleteCategory(c *fiber.Ctx) error {
	id := c.Params("id")
	var affected int64
	err := s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, "id = ?", id)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete category"})
	}
	if affected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- orders ----

// ListOrders query: status, page, limit.
func (s *AdminService) ListOrders(c *fiber.Ctx) error {
	page := ParsePage(c.Query("page"), c.Query("limit"))
	q := s.DB.WithContext(c.UserContext()).Model(&models.Order{})
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseOrderStatus(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		q = q.Where("status = ?", st)
	}

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

func (s *AdminService) GetOrder(c *fiber.Ctx) error {
	var order models.Order
	if err := s.DB.WithContext(c.UserContext()).Preload("Items").First(&order, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrorJSON(c, ErrOrderNotFound)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch order"})
	}
	return c.JSON(order)
}

type OrderStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus moves an order through the OrderStatus transition table.
// Cancelled orders put their stock back.
func (s *AdminService) UpdateOrderStatus(c *fiber.Ctx) error {
	var in OrderStatusInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	next, err := models.ParseOrderStatus(in.Status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var order models.Order
	err = s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Items").First(&order, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
		}
		if err := tx.Model(&order).Update("status", next).Error; err != nil {
			return err
		}
		if next == models.OrderStatusCancelled {
			if err := restock(tx, &order, middleware.UserID(c)); err != nil {
				return err
			}
		}
		if !next.CountsAsRevenue() {
			return tx.Model(&models.AffiliateSale{}).
				Where("order_id = ?", order.ID).
				Update("status", models.SaleStatusCancelled).Error
		}
		return nil
	})
	if err != nil {
		return ErrorJSON(c, err)
	}

	order.Status = next
	log.Info().Str("order_id", order.ID).Str("status", string(next)).Str("actor", middleware.UserID(c)).Msg("[ADMIN] order status changed")
	return c.JSON(order)
}

func restock(tx *gorm.DB, order *models.Order, actor string) error {
	for _, it := range order.Items {
		var product models.Product
		if err := tx.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}
		after := product.Stock + it.Quantity
		if err := tx.Unscoped().Model(&product).Update("stock", after).Error; err != nil {
			return err
		}
		orderID := order.ID
		if err := tx.Create(&models.StockMovement{
			ProductID:  product.ID,
			Delta:      it.Quantity,
			StockAfter: after,
			Reason:     "order cancelled",
			ActorID:    actor,
			OrderID:    &orderID,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ---- inventory ----

type StockAdjustInput struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,max=200"`
}

// AdjustStock applies a signed delta and records the movement. Stock never
// goes below zero.
func (s *AdminService) AdjustStock(c *fiber.Ctx) error {
	var in StockAdjustInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validateStruct(in); err != nil {
		return ErrorJSON(c, err)
	}

	var product models.Product
	err := s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", c.Params("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		after := product.Stock + in.Delta
		if after < 0 {
			return &ValidationError{Message: fmt.Sprintf("stock cannot go below zero (current %d)", product.Stock)}
		}
		if err := tx.Model(&product).Update("stock", after).Error; err != nil {
			return err
		}
		product.Stock = after
		return tx.Create(&models.StockMovement{
			ProductID:  product.ID,
			Delta:      in.Delta,
			StockAfter: after,
			Reason:     in.Reason,
			ActorID:    middleware.UserID(c),
		}).Error
	})
	if err != nil {
		return ErrorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"product_id": product.ID,
		"stock":      product.Stock,
		"severity":   models.ClassifyStock(product.Stock, s.LowStockThreshold),
	})
}

func (s *AdminService) StockMovements(c *fiber.Ctx) error {
	var movements []models.StockMovement
	err := s.DB.WithContext(c.UserContext()).
		Where("product_id = ?", c.Params("id")).
		Order("created_at DESC").
		Limit(200).
		Find(&movements).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch stock movements"})
	}
	return c.JSON(movements)
}

// StockAlert is one product that needs restocking attention.
type StockAlert struct {
	ProductID string               `json:"product_id"`
	Title     string               `json:"title"`
	Stock     int                  `json:"stock"`
	Severity  models.StockSeverity `json:"severity"`
}

var severityRank = map[models.StockSeverity]int{
	models.StockOutOfStock: 0,
	models.StockCritical:   1,
	models.StockLow:        2,
	models.StockOK:         3,
}

// BuildStockAlerts classifies products and keeps those needing an alert,
// most severe first.
func BuildStockAlerts(products []models.Product, threshold int) []StockAlert {
	alerts := []StockAlert{}
	for _, p := range products {
		sev := models.ClassifyStock(p.Stock, threshold)
		if !sev.NeedsAlert() {
			continue
		}
		alerts = append(alerts, StockAlert{ProductID: p.ID, Title: p.Title, Stock: p.Stock, Severity: sev})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		if severityRank[alerts[i].Severity] != severityRank[alerts[j].Severity] {
			return severityRank[alerts[i].Severity] < severityRank[alerts[j].Severity]
		}
		return alerts[i].Stock < alerts[j].Stock
	})
	return alerts
}

func (s *AdminService) StockAlerts(c *fiber.Ctx) error {
	alerts, err := ScanStock(c.UserContext(), s.DB, s.LowStockThreshold)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch stock"})
	}
	return c.JSON(fiber.Map{
		"threshold": s.LowStockThreshold,
		"alerts":    alerts,
	})
}

// ---- reviews ----

func (s *AdminService) ListPendingReviews(c *fiber.Ctx) error {
	var reviews []models.Review
	if err := s.DB.WithContext(c.UserContext()).Where("is_approved = ?", false).Order("created_at ASC").Find(&reviews).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch reviews"})
	}
	return c.JSON(reviews)
}

// recomputeRating refreshes a product's rating from its approved reviews.
func recomputeRating(tx *gorm.DB, productID string) error {
	var agg struct {
		Avg   float64
		Count int
	}
	err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Product{}).Where("id = ?", productID).Updates(map[string]any{
		"average_rating": roundCents(agg.Avg),
		"review_count":   agg.Count,
	}).Error
}

func (s *AdminService) ApproveReview(c *fiber.Ctx) error {
	var review models.Review
	err := s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, "id = ?", c.Params("id")).Error; err != nil {
			return err
		}
		if err := tx.Model(&review).Update("is_approved", true).Error; err != nil {
			return err
		}
		return recomputeRating(tx, review.ProductID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "review not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to approve review"})
	}
	review.IsApproved = true
	return c.JSON(review)
}

func (s *AdminService) DeleteReview(c *fiber.Ctx) error {
	err := s.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, "id = ?", c.Params("id")).Error; err != nil {
			return err
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return recomputeRating(tx, review.ProductID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "review not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete review"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- reports ----

// RevenueStatuses are the order statuses counted in sales reports.
func RevenueStatuses() []models.OrderStatus {
	var out []models.OrderStatus
	for _, st := range models.OrderStatuses {
		if st.CountsAsRevenue() {
			out = append(out, st)
		}
	}
	return out
}

// ReportRange parses from/to (YYYY-MM-DD). Defaults to the last 30 days;
// to is inclusive.
func ReportRange(rawFrom, rawTo string, now time.Time) (time.Time, time.Time, error) {
	to := now
	if rawTo != "" {
		t, err := time.Parse(time.DateOnly, rawTo)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Message: "to must be YYYY-MM-DD"}
		}
		to = t.AddDate(0, 0, 1)
	}
	from := to.AddDate(0, 0, -30)
	if rawFrom != "" {
		t, err := time.Parse(time.DateOnly, rawFrom)
		if err != nil {
			return time.Time{}, time.Time{}, &ValidationError{Message: "from must be YYYY-MM-DD"}
		}
		from = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, &ValidationError{Message: "from must be before to"}
	}
	return from, to, nil
}

type SalesSummary struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	OrderCount        int64     `json:"order_count"`
	Revenue           float64   `json:"revenue"`
	AverageOrderValue float64   `json:"average_order_value"`
}

func (s *AdminService) SalesSummary(c *fiber.Ctx) error {
	from, to, err := ReportRange(c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		return ErrorJSON(c, err)
	}

	var agg struct {
		Count   int64
		Revenue float64
	}
	err = s.DB.WithContext(c.UserContext()).Model(&models.Order{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue").
		Where("status IN ? AND created_at >= ? AND created_at < ?", RevenueStatuses(), from, to).
		Scan(&agg).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute sales"})
	}

	summary := SalesSummary{From: from, To: to, OrderCount: agg.Count, Revenue: roundCents(agg.Revenue)}
	if agg.Count > 0 {
		summary.AverageOrderValue = roundCents(agg.Revenue / float64(agg.Count))
	}
	return c.JSON(summary)
}

type TopProduct struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Units     int64   `json:"units"`
	Revenue   float64 `json:"revenue"`
}

func (s *AdminService) TopProducts(c *fiber.Ctx) error {
	from, to, err := ReportRange(c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		return ErrorJSON(c, err)
	}
	limit := ParsePage("1", c.Query("limit", "10")).Size

	var rows []TopProduct
	err = s.DB.WithContext(c.UserContext()).
		Table("order_items").
		Select("order_items.product_id, MAX(order_items.title) AS title, SUM(order_items.quantity) AS units, SUM(order_items.line_total) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ? AND orders.created_at >= ? AND orders.created_at < ?", RevenueStatuses(), from, to).
		Group("order_items.product_id").
		Order("units DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute top products"})
	}
	if rows == nil {
		rows = []TopProduct{}
	}
	return c.JSON(rows)
}

func (s *AdminService) AffiliateReport(c *fiber.Ctx) error {
	rows, err := repository.NewStore(s.DB).AffiliateSummary(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute affiliate report"})
	}
	if rows == nil {
		rows = []repository.AffiliateSummaryRow{}
	}
	return c.JSON(rows)
}

// ---- affiliates ----

func (s *AdminService) ListAffiliates(c *fiber.Ctx) error {
	list, err := s.Affiliates.List(c.UserContext(), c.Query("status"))
	if err != nil {
		return ErrorJSON(c, err)
	}
	if list == nil {
		list = []models.Affiliate{}
	}
	return c.JSON(list)
}

type AffiliateStatusInput struct {
	Status string `json:"status" validate:"required"`
}

func (s *AdminService) SetAffiliateStatus(c *fiber.Ctx) error {
	var in AffiliateStatusInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	aff, err := s.Affiliates.SetStatus(c.UserContext(), c.Params("id"), in.Status)
	if err != nil {
		return ErrorJSON(c, err)
	}
	return c.JSON(aff)
}
