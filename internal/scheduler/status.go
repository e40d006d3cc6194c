// Package scheduler moves events through their status lifecycle on a timer.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamevents/streamevents/internal/storage"
)

// StatusUpdater transitions events between statuses as time passes:
// scheduled events whose start time has arrived go live, and live events
// past their expected end time finish.
type StatusUpdater struct {
	db *storage.DB
}

// NewStatusUpdater creates a status updater over the given storage.
func NewStatusUpdater(db *storage.DB) *StatusUpdater {
	return &StatusUpdater{db: db}
}

// RunOnce applies all due transitions as of now. Returns how many events
// went live and how many finished.
func (s *StatusUpdater) RunOnce(now time.Time) (started, finished int, err error) {
	scheduled, err := s.db.ListEvents(storage.EventFilter{Status: storage.StatusScheduled})
	if err != nil {
		return 0, 0, err
	}
	for _, e := range scheduled {
		if !e.ScheduledDate.After(now) {
			if err := s.db.UpdateEventStatus(e.ID, storage.StatusLive); err != nil {
				log.Warn().Err(err).Int64("event_id", e.ID).Msg("status: go-live failed")
				continue
			}
			started++
		}
	}

	live, err := s.db.ListEvents(storage.EventFilter{Status: storage.StatusLive})
	if err != nil {
		return started, 0, err
	}
	for _, e := range live {
		if !e.EndTime().After(now) {
			if err := s.db.UpdateEventStatus(e.ID, storage.StatusFinished); err != nil {
				log.Warn().Err(err).Int64("event_id", e.ID).Msg("status: finish failed")
				continue
			}
			finished++
		}
	}

	if started > 0 || finished > 0 {
		log.Info().Int("started", started).Int("finished", finished).Msg("event statuses updated")
	}
	return started, finished, nil
}

// Run applies transitions every interval until the context is cancelled.
func (s *StatusUpdater) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, _, err := s.RunOnce(now); err != nil {
				log.Error().Err(err).Msg("status update pass failed")
			}
		}
	}
}
