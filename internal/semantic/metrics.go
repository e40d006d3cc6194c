package semantic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dimensionMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamevents_ranker_dimension_mismatch_total",
		Help: "Candidates skipped because their embedding dimensionality differs from the query's; a nonzero rate usually means a model migration backfill has not finished.",
	})

	backfillUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamevents_backfill_updated_total",
		Help: "Events whose embedding was (re)computed by the backfill job.",
	})

	backfillFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamevents_backfill_failed_total",
		Help: "Events the backfill job failed to embed or persist.",
	})
)
