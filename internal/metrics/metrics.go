package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Posting and reversal outcomes are labeled so dashboards can split
// rejected configuration errors from committed postings.
var (
	PostingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Posting requests by outcome",
	}, []string{"outcome"})

	ReversalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reversals_total",
		Help: "Reversal requests by outcome",
	}, []string{"outcome"})

	PostingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_posting_duration_seconds",
		Help:    "Posting commit latency",
		Buckets: prometheus.DefBuckets,
	})
)
