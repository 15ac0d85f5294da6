package history

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// retentionSchedule runs the sweep nightly, off peak.
// Standard 5-field cron format: minute hour day-of-month month day-of-week.
const retentionSchedule = "30 3 * * *"

// Sweeper deletes history records older than the retention window on a
// nightly cron schedule. A retention of 0 days disables sweeping.
type Sweeper struct {
	cron          *cron.Cron
	store         *Store
	retentionDays int
}

// NewSweeper builds a sweeper over the given store.
func NewSweeper(store *Store, retentionDays int) *Sweeper {
	return &Sweeper{
		cron:          cron.New(),
		store:         store,
		retentionDays: retentionDays,
	}
}

// Start runs one sweep immediately, then schedules the nightly job. Calling
// Start with retention disabled is a no-op.
func (s *Sweeper) Start() error {
	if s.retentionDays <= 0 {
		return nil
	}
	s.Sweep(context.Background())
	if _, err := s.cron.AddFunc(retentionSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes everything older than the retention window.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	pruned, err := s.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("history_retention_failed")
		return
	}
	if pruned > 0 {
		log.Info().Int64("pruned", pruned).Int("retention_days", s.retentionDays).
			Msg("history_retention_completed")
	}
}
