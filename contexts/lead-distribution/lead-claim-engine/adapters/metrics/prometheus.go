package metricsadapter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements ports.ClaimMetrics on Prometheus collectors.
type Metrics struct {
	ClaimsTotal         *prometheus.CounterVec
	ArbitrationDuration *prometheus.HistogramVec
	ReleasesTotal       *prometheus.CounterVec
	CatalogPageSize     prometheus.Histogram
	RecalculationsTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors on registerer. Passing nil uses the
// default Prometheus registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	return &Metrics{
		ClaimsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadhub_claims_total",
				Help: "Claim attempts by claim mode and outcome",
			},
			[]string{"claim_mode", "outcome"},
		),
		ArbitrationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadhub_claim_arbitration_duration_seconds",
				Help:    "Time spent arbitrating a claim, including contention wait",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"claim_mode"},
		),
		ReleasesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadhub_claim_releases_total",
				Help: "Claim releases by outcome",
			},
			[]string{"outcome"},
		),
		CatalogPageSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "leadhub_catalog_page_items",
				Help:    "Items returned per tenant catalog page",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		RecalculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadhub_score_recalculations_total",
				Help: "Base score recalculations by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) ObserveClaim(mode string, outcome string, elapsed time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.ClaimsTotal.WithLabelValues(mode, outcome).Inc()
	m.ArbitrationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRelease(outcome string) {
	m.ReleasesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCatalogPage(items int) {
	m.CatalogPageSize.Observe(float64(items))
}

func (m *Metrics) ObserveRecalculation(outcome string) {
	m.RecalculationsTotal.WithLabelValues(outcome).Inc()
}
