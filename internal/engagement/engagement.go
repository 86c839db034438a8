// Package engagement refreshes the counters of published quote tweets and
// keeps their snapshot history.
package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

var snapshotsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tweetcurator_metrics_snapshots_total",
		Help: "Engagement refresh attempts by result",
	},
	[]string{"result"},
)

// lookupBatch is the number of published ids sent per provider call.
const lookupBatch = 50

// MetricsProvider returns the current public counters of posted tweets, keyed
// by published id. Ids it could not resolve are absent from the map.
type MetricsProvider interface {
	LookupCounters(ctx context.Context, publishedIDs []string) (map[string]database.Counters, error)
}

// Result holds the results of a refresh run.
type Result struct {
	Targets   int
	Refreshed int
	Failed    int
}

// Refresher pulls counters for published tweets and appends snapshots.
type Refresher struct {
	db         *database.DB
	provider   MetricsProvider
	limit      int
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewRefresher creates a refresher. limit caps targets per run (0 = no cap);
// staleAfter skips tweets refreshed more recently than that (0 = refresh all).
func NewRefresher(db *database.DB, provider MetricsProvider, limit int, staleAfter time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		db:         db,
		provider:   provider,
		limit:      limit,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

// Refresh fetches counters for every eligible published tweet in batches of
// lookupBatch ids. A failed batch or an id missing from a batch response is
// logged and counted; storage failures end the run.
func (r *Refresher) Refresh(ctx context.Context) (*Result, error) {
	var staleBefore time.Time
	if r.staleAfter > 0 {
		staleBefore = r.now().Add(-r.staleAfter)
	}

	targets, err := r.db.GetMetricsTargets(r.limit, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("loading metrics targets: %w", err)
	}

	res := &Result{Targets: len(targets)}
	if len(targets) == 0 {
		r.logger.Info("no published tweets need a metrics refresh")
		return res, nil
	}

	for start := 0; start < len(targets); start += lookupBatch {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		batch := targets[start:min(start+lookupBatch, len(targets))]
		ids := make([]string, len(batch))
		for i, t := range batch {
			ids[i] = t.PublishedTweetID
		}

		counters, err := r.provider.LookupCounters(ctx, ids)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed += len(batch)
			snapshotsTotal.WithLabelValues("error").Add(float64(len(batch)))
			r.logger.Warn("fetching counters failed",
				zap.Strings("published_ids", ids),
				zap.Error(err),
			)
			continue
		}

		for _, t := range batch {
			c, ok := counters[t.PublishedTweetID]
			if !ok {
				res.Failed++
				snapshotsTotal.WithLabelValues("missing").Inc()
				r.logger.Warn("no counters returned",
					zap.String("tweet_id", t.TweetID),
					zap.String("published_id", t.PublishedTweetID),
				)
				continue
			}
			if err := r.db.AppendMetricsSnapshot(t.TweetID, c); err != nil {
				return res, fmt.Errorf("saving snapshot for %s: %w", t.TweetID, err)
			}
			res.Refreshed++
			snapshotsTotal.WithLabelValues("ok").Inc()
		}
	}

	r.logger.Info("metrics refresh complete",
		zap.Int("targets", res.Targets),
		zap.Int("refreshed", res.Refreshed),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
