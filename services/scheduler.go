// services/scheduler.go
package services

import (
	"context"
	"time"

	"cozzyhub/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	StockScanInterval = 15 * time.Minute
	CartPurgeInterval = time.Hour
	StaleCartAge      = 30 * 24 * time.Hour
)

// StartScheduler registers the periodic maintenance jobs and starts them.
// The caller shuts the scheduler down.
func StartScheduler(db *gorm.DB, cart *CartService, lowStockThreshold int) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	// Every 15 minutes: log products that need restocking
	_, err = sched.NewJob(
		gocron.DurationJob(StockScanInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			alerts, err := ScanStock(ctx, db, lowStockThreshold)
			if err != nil {
				log.Error().Err(err).Msg("[Scheduler] stock scan failed")
				return
			}
			for _, a := range alerts {
				log.Warn().Str("product_id", a.ProductID).Str("title", a.Title).Int("stock", a.Stock).
					Str("severity", string(a.Severity)).Msg("[Scheduler] stock alert")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	// Hourly: drop cart lines nobody touched for 30 days
	_, err = sched.NewJob(
		gocron.DurationJob(CartPurgeInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := cart.PurgeStale(ctx, time.Now().Add(-StaleCartAge))
			if err != nil {
				log.Error().Err(err).Msg("[Scheduler] cart purge failed")
				return
			}
			if n > 0 {
				log.Info().Int64("lines", n).Msg("[Scheduler] purged stale cart lines")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

// ScanStock classifies every active product at or under the threshold.
func ScanStock(ctx context.Context, db *gorm.DB, threshold int) ([]StockAlert, error) {
	var products []models.Product
	err := db.WithContext(ctx).
		Select("id", "title", "stock").
		Where("is_active = ? AND stock <= ?", true, threshold).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return BuildStockAlerts(products, threshold), nil
}
