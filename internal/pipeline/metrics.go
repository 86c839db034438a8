package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decisions partitioned by outcome: approved, rejected, malformed
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tweetcurator_decisions_total",
			Help: "Judge decisions by outcome",
		},
		[]string{"outcome"},
	)

	judgeCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tweetcurator_judge_call_duration_seconds",
			Help:    "Latency of judge calls in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	ingestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tweetcurator_ingested_tweets_total",
			Help: "Tweets written to the store by saveRaw",
		},
	)
)
