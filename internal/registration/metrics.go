package registration

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Submission outcomes used as metric labels.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
	outcomeInvalid  = "invalid"
)

// Metrics holds Prometheus metrics for registration.
type Metrics struct {
	DraftsCreatedTotal prometheus.Counter
	DraftsActive       prometheus.Gauge
	AdvanceTotal       *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	SubmitDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers the registration metrics once per process.
//
// Metrics:
//   - portal_registration_drafts_created_total
//   - portal_registration_drafts_active
//   - portal_registration_advance_total{outcome}
//   - portal_registration_submissions_total{user_type,outcome}
//   - portal_registration_submit_duration_seconds{user_type}
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			DraftsCreatedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "portal_registration_drafts_created_total",
					Help: "Total number of community registration drafts started",
				},
			),
			DraftsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "portal_registration_drafts_active",
					Help: "Number of community registration drafts held in memory",
				},
			),
			AdvanceTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "portal_registration_advance_total",
					Help: "Total number of attempts to leave the community info step",
				},
				[]string{"outcome"}, // "success" or "invalid"
			),
			SubmissionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "portal_registration_submissions_total",
					Help: "Total number of registration submissions by outcome",
				},
				[]string{"user_type", "outcome"},
			),
			SubmitDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "portal_registration_submit_duration_seconds",
					Help:    "Duration of registration calls to the auth provider",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"user_type"},
			),
		}
	})
	return globalMetrics
}
