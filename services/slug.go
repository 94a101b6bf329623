package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// SlugCandidate is slug(title), suffixed with the Unix millisecond time when
// the plain slug is taken.
func SlugCandidate(title string, taken bool, now time.Time) string {
	base := slug.Make(title)
	if base == "" {
		base = "item"
	}
	if taken {
		return fmt.Sprintf("%s-%d", base, now.UnixMilli())
	}
	return base
}

// uniqueSlug checks model's table, soft-deleted rows included, for the plain slug.
func uniqueSlug(ctx context.Context, db *gorm.DB, model any, title string) (string, error) {
	base := SlugCandidate(title, false, time.Time{})
	var count int64
	if err := db.WithContext(ctx).Unscoped().Model(model).Where("slug = ?", base).Count(&count).Error; err != nil {
		return "", err
	}
	return SlugCandidate(title, count > 0, time.Now()), nil
}

// NormalizeCategoryName collapses whitespace and title-cases a free-text
// category so "  home  DECOR" and "Home Decor" resolve to one category.
func NormalizeCategoryName(name string) string {
	// Casers are stateful; one per call.
	return cases.Title(language.English).String(strings.ToLower(strings.Join(strings.Fields(name), " ")))
}
