package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Posting metrics
	EventsPosted    *prometheus.CounterVec
	EntriesCreated  prometheus.Counter
	PostingDuration prometheus.Histogram
	PostingErrors   *prometheus.CounterVec
	PostingAmount   prometheus.Histogram

	// Reversal metrics
	ReversalsCreated prometheus.Counter
	ReversalErrors   *prometheus.CounterVec

	// Account metrics
	AccountsCreated prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		EventsPosted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_posted_total",
				Help: "Total number of business events posted",
			},
			[]string{"event_type"},
		),
		EntriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_entries_created_total",
			Help: "Total number of ledger entries created",
		}),
		PostingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_posting_duration_seconds",
			Help:    "Duration of posting operations",
			Buckets: prometheus.DefBuckets,
		}),
		PostingErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_posting_errors_total",
				Help: "Total number of posting errors by type",
			},
			[]string{"error_type"},
		),
		PostingAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_posting_amount",
			Help:    "Total debit amount of committed entry groups",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		ReversalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reversals_created_total",
			Help: "Total number of entry groups reversed",
		}),
		ReversalErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_reversal_errors_total",
				Help: "Total number of reversal errors by type",
			},
			[]string{"error_type"},
		),

		AccountsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Total number of accounts created",
		}),
	}
}
