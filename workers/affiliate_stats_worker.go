// workers/affiliate_stats_worker.go
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CounterRefresher recomputes the denormalized affiliate totals.
type CounterRefresher interface {
	RefreshCounters(ctx context.Context) (int64, error)
}

// AffiliateStatsWorker keeps affiliate click, conversion and earning
// counters in step with the click and sale rows.
type AffiliateStatsWorker struct {
	refresher CounterRefresher
	interval  time.Duration
	timeout   time.Duration
}

func NewAffiliateStatsWorker(refresher CounterRefresher) *AffiliateStatsWorker {
	return &AffiliateStatsWorker{
		refresher: refresher,
		interval:  10 * time.Minute,
		timeout:   2 * time.Minute,
	}
}

func (w *AffiliateStatsWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("🔁 Starting Affiliate Stats Worker")
	go w.run(ctx)
}

func (w *AffiliateStatsWorker) run(ctx context.Context) {
	// Initial pass so counters are current after a deploy
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)
		case <-ctx.Done():
			log.Info().Msg("⏹️ Affiliate Stats Worker stopped")
			return
		}
	}
}

func (w *AffiliateStatsWorker) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	n, err := w.refresher.RefreshCounters(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ affiliate counter refresh failed")
		return
	}
	log.Debug().Int64("affiliates", n).Msg("affiliate counters refreshed")
}
