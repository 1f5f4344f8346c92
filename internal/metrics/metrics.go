package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	// TransfersTotal counts per-item transfer results by operation and status
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbtc_transfers_total",
			Help: "Total number of CBTC transfer results",
		},
		[]string{"operation", "status"},
	)

	// SubmissionDuration tracks ledger submission round trip time
	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cbtc_submission_duration_seconds",
			Help:    "Ledger submission duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// TokenExchanges counts identity provider grant exchanges
	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbtc_token_exchanges_total",
			Help: "Total number of identity provider token exchanges",
		},
		[]string{"grant", "status"},
	)

	// BatchesTotal counts multi-command batch submissions
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbtc_batches_total",
			Help: "Total number of batch submissions",
		},
		[]string{"operation", "status"},
	)

	// HoldingPoolSize tracks the number of holdings available to the next chained transfer
	HoldingPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cbtc_holding_pool_size",
			Help: "Holdings currently available to the running chain",
		},
	)

	// RegistryRequests counts registry context fetches by kind and status
	RegistryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cbtc_registry_requests_total",
			Help: "Total number of registry choice-context requests",
		},
		[]string{"kind", "status"},
	)
)

// StatusLabel maps a boolean outcome to a status label.
func StatusLabel(ok bool) string {
	if ok {
		return StatusSuccess
	}
	return StatusFailed
}
