// Package metrics holds the prometheus instruments for the session service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the session service instruments.
type Metrics struct {
	LoginsTotal         prometheus.Counter
	LoginFailures       *prometheus.CounterVec
	Registrations       prometheus.Counter
	Logouts             prometheus.Counter
	Reconciliations     *prometheus.CounterVec
	ReconcileDurationMs prometheus.Histogram
}

// New creates and registers the session metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		LoginsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_logins_total",
			Help: "Total number of successful sign-ins",
		}),
		LoginFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_login_failures_total",
			Help: "Failed sign-ins by taxonomy code",
		}, []string{"code"}),
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_registrations_total",
			Help: "Total number of accounts registered",
		}),
		Logouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "warden_logouts_total",
			Help: "Total number of sign-outs",
		}),
		Reconciliations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "warden_reconciliations_total",
			Help: "Provider event reconciliations by outcome",
		}, []string{"outcome"}),
		ReconcileDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "warden_reconcile_duration_ms",
			Help:    "Latency of profile reconciliation in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}
