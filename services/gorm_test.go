package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cozzyhub/middleware"
	"cozzyhub/models"
	"cozzyhub/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a migrated sqlite database private to t. One connection
// keeps transactions and follow-up reads on the same handle.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cozzyhub.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repository.Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, title string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:    title,
		Slug:     SlugCandidate(title, false, time.Time{}),
		Price:    price,
		Stock:    stock,
		IsActive: true,
		Images:   []string{"https://cdn.example/" + title + ".jpg"},
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCart(t *testing.T, db *gorm.DB, userID string, lines map[*models.Product]int) {
	t.Helper()
	for p, qty := range lines {
		require.NoError(t, db.Create(&models.CartItem{UserID: userID, ProductID: p.ID, Quantity: qty}).Error)
	}
}

func stockOf(t *testing.T, db *gorm.DB, productID string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.Unscoped().First(&p, "id = ?", productID).Error)
	return p.Stock
}

func newProfile(admin bool) *models.Profile {
	return &models.Profile{
		ID:           uuid.NewString(),
		Email:        "shopper@cozzyhub.example",
		FullName:     "Test Shopper",
		IsAuthorized: true,
		IsAdmin:      admin,
	}
}

// staticSession accepts any bearer token as the given profile.
type staticSession struct {
	profile *models.Profile
}

func (s staticSession) ParseSession(string) (string, error) { return s.profile.ID, nil }

func (s staticSession) Profile(context.Context, string) (*models.Profile, error) {
	return s.profile, nil
}

// newSessionApp mounts routes behind a session that always resolves to profile.
func newSessionApp(profile *models.Profile) (*fiber.App, fiber.Handler) {
	return fiber.New(), middleware.UserContextMiddleware(staticSession{profile: profile})
}

func sessionRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer session")
	return req
}
