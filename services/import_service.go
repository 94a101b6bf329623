package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cozzyhub/models"
	"cozzyhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MaxImportImages caps how many images one import re-hosts.
const MaxImportImages = 6

// ImportInput is the payload the browser extension scrapes from a product page.
type ImportInput struct {
	Title             string            `json:"title" validate:"required,max=300"`
	Description       string            `json:"description"`
	Price             float64           `json:"price" validate:"gte=0"`
	Images            []string          `json:"images"`
	Category          string            `json:"category" validate:"max=120"`
	Stock             *int              `json:"stock" validate:"omitempty,gte=0"`
	Color             string            `json:"color"`
	ProductHighlights []string          `json:"productHighlights"`
	AdditionalDetails map[string]string `json:"additionalDetails"`
	SourceURL         string            `json:"sourceUrl"`
	Source            string            `json:"source"`
}

type fetchFunc func(ctx context.Context, url string) ([]byte, string, error)

type ImportService struct {
	DB      *gorm.DB
	Objects utils.ObjectStore
	fetch   fetchFunc
}

func NewImportService(db *gorm.DB, objects utils.ObjectStore) *ImportService {
	return &ImportService{DB: db, Objects: objects, fetch: utils.Download}
}

// RehostImages copies up to MaxImportImages images into object storage under
// products/{uuid}{ext}. Failed images are skipped; when none succeed the
// original URLs are returned.
func (s *ImportService) RehostImages(ctx context.Context, urls []string) []string {
	var sources []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			sources = append(sources, u)
		}
		if len(sources) == MaxImportImages {
			break
		}
	}
	if len(sources) == 0 {
		return []string{}
	}
	if s.Objects == nil {
		return sources
	}

	hosted := make([]string, 0, len(sources))
	for i, src := range sources {
		body, contentType, err := s.fetch(ctx, src)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Str("url", src).Msg("[IMPORT] image download failed, skipping")
			continue
		}
		key := "products/" + uuid.NewString() + utils.ImageExt(src, contentType)
		url, err := s.Objects.Upload(ctx, key, body, contentType)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Str("url", src).Msg("[IMPORT] image upload failed, skipping")
			continue
		}
		hosted = append(hosted, url)
	}

	if len(hosted) == 0 {
		log.Warn().Int("images", len(sources)).Msg("[IMPORT] no image re-hosted, keeping original URLs")
		return sources
	}
	return hosted
}

// resolveCategory finds the category for a free-text name, creating it when
// missing. An empty name means no category.
func resolveCategory(tx *gorm.DB, raw string) (*string, error) {
	name := NormalizeCategoryName(raw)
	if name == "" {
		return nil, nil
	}
	var category models.Category
	err := tx.Unscoped().
		Where(models.Category{Slug: slug.Make(name)}).
		Attrs(models.Category{Name: name}).
		FirstOrCreate(&category).Error
	if err != nil {
		return nil, err
	}
	if category.DeletedAt.Valid {
		if err := tx.Unscoped().Model(&category).Update("deleted_at", nil).Error; err != nil {
			return nil, err
		}
	}
	return &category.ID, nil
}

// ImportProduct stores a scraped product as an active product.
func (s *ImportService) ImportProduct(ctx context.Context, in ImportInput) (*models.Product, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	images := s.RehostImages(ctx, in.Images)

	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	product := &models.Product{
		Title:             in.Title,
		Description:       in.Description,
		Price:             roundCents(in.Price),
		Stock:             stock,
		Images:            images,
		Color:             in.Color,
		Highlights:        in.ProductHighlights,
		AdditionalDetails: in.AdditionalDetails,
		SourceURL:         in.SourceURL,
		Source:            in.Source,
		IsActive:          true,
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			categoryID, err := resolveCategory(tx, in.Category)
			if err != nil {
				return fmt.Errorf("failed to resolve category: %w", err)
			}
			product.CategoryID = categoryID

			if attempt == 0 {
				sl, err := uniqueSlug(ctx, tx, &models.Product{}, in.Title)
				if err != nil {
					return fmt.Errorf("failed to generate slug: %w", err)
				}
				product.Slug = sl
			} else {
				product.Slug = SlugCandidate(in.Title, true, time.Now())
			}
			return tx.Create(product).Error
		})
		// A concurrent import can take the slug between check and insert.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		product.ID = ""
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("product_id", product.ID).Str("slug", product.Slug).Int("images", len(images)).Str("source", in.Source).Msg("[IMPORT] product imported")
	return product, nil
}

// Import is the HTTP entry for the browser extension.
func (s *ImportService) Import(c *fiber.Ctx) error {
	var in ImportInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	product, err := s.ImportProduct(c.UserContext(), in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Message})
		}
		log.Error().Err(err).Msg("[IMPORT] product import failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to import product", "message": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "product": product})
}
