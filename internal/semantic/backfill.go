package semantic

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamevents/streamevents/internal/embeddings"
	"github.com/streamevents/streamevents/internal/storage"
)

// Backfill (re)computes embeddings for stored events.
type Backfill struct {
	db       *storage.DB
	provider *Provider
}

// NewBackfill creates a backfill job over the given storage and provider.
func NewBackfill(db *storage.DB, provider *Provider) *Backfill {
	return &Backfill{db: db, provider: provider}
}

// BackfillStats summarizes one backfill run.
type BackfillStats struct {
	Scanned  int
	Updated  int
	Skipped  int
	Failed   []int64 // IDs of events that could not be embedded or persisted
	Duration time.Duration
}

// Run visits events oldest-created-first and brings their embeddings up to
// date with the current model. With force=false, events already carrying an
// embedding are skipped without re-embedding; force=true re-embeds them
// unconditionally. limit caps the candidates considered (0 = all).
//
// Events whose normalized text is blank never receive an embedding, even
// under force. A failure on one event is logged and recorded in
// Stats.Failed; it does not stop the batch.
func (b *Backfill) Run(force bool, limit int) (*BackfillStats, error) {
	start := time.Now()
	stats := &BackfillStats{}

	ids, err := b.db.ListEventIDs(limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	for _, id := range ids {
		stats.Scanned++

		e, err := b.db.GetEvent(id)
		if err != nil {
			log.Warn().Err(err).Int64("event_id", id).Msg("backfill: load event failed")
			stats.Failed = append(stats.Failed, id)
			backfillFailed.Inc()
			continue
		}
		if e == nil {
			// Deleted between listing and loading.
			continue
		}

		if !force && len(e.Embedding) > 0 {
			stats.Skipped++
			continue
		}

		text := EventTextOf(e)
		if text == "" {
			stats.Skipped++
			continue
		}

		vec, err := b.provider.EmbedText(text)
		if err != nil {
			log.Warn().Err(err).Int64("event_id", id).Str("title", e.Title).Msg("backfill: embed failed")
			stats.Failed = append(stats.Failed, id)
			backfillFailed.Inc()
			continue
		}

		blob := embeddings.SerializeVector(vec)
		if err := b.db.UpdateEventEmbedding(id, blob, b.provider.ModelName(), time.Now().UTC()); err != nil {
			log.Warn().Err(err).Int64("event_id", id).Msg("backfill: persist embedding failed")
			stats.Failed = append(stats.Failed, id)
			backfillFailed.Inc()
			continue
		}

		stats.Updated++
		backfillUpdated.Inc()
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("scanned", stats.Scanned).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("failed", len(stats.Failed)).
		Dur("duration", stats.Duration).
		Msg("backfill complete")
	return stats, nil
}
