package prenatal

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Refresher periodically recomputes every user's gestational age, missed
// exams and reminders.
type Refresher struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

func NewRefresher(svc *Service, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{svc: svc, interval: interval, logger: logger}
}

// Run refreshes once immediately and then every interval until ctx ends.
func (r *Refresher) Run(ctx context.Context) {
	r.tick(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("refresher stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	start := time.Now()
	ok, failed, err := r.svc.RefreshAll(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("periodic refresh aborted")
		return
	}
	r.logger.Info().
		Int("refreshed", ok).
		Int("failed", failed).
		Dur("took", time.Since(start)).
		Msg("periodic refresh complete")
}
