// Package dashboard exposes the E-PASA operational surface as Prometheus
// metrics served on the admin endpoint.
package dashboard

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solace-ai/solace/pkg/domain"
)

// Metrics holds all Prometheus metrics for the E-PASA dashboard.
type Metrics struct {
	batchesTotal     *prometheus.CounterVec
	batchDuration    prometheus.Histogram
	patternsTotal    *prometheus.CounterVec
	epistemicDebt    prometheus.Gauge
	latticeNodes     prometheus.Gauge
	latticeEdges     prometheus.Gauge
	driftRatio       prometheus.Gauge
	compliance       prometheus.Gauge
	breakerState     *prometheus.GaugeVec
	proposalsTotal   *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance with all dashboard metrics registered
// on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solace_batches_total",
				Help: "Total number of batches processed by outcome",
			},
			[]string{"outcome"},
		),

		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "solace_batch_duration_seconds",
				Help:    "Batch processing latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		patternsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solace_patterns_total",
				Help: "Total number of patterns by integrity verdict",
			},
			[]string{"verdict"},
		),

		epistemicDebt: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solace_epistemic_debt",
				Help: "Total unresolved tension held in the contradiction lattice",
			},
		),

		latticeNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solace_lattice_nodes",
				Help: "Number of nodes in the contradiction lattice",
			},
		),

		latticeEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solace_lattice_edges",
				Help: "Number of edges in the contradiction lattice",
			},
		),

		driftRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solace_epasa_drift_ratio",
				Help: "Most recent drift ratio against the pinned baseline",
			},
		),

		compliance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "solace_epasa_compliant",
				Help: "Whether the most recent batch was compliant (1=yes, 0=no)",
			},
		),

		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "solace_drift_breaker_state",
				Help: "Drift breaker state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),

		proposalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solace_governance_proposals_total",
				Help: "Governance proposals by final state",
			},
			[]string{"state"},
		),

		rateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "solace_ingest_rate_limited_total",
				Help: "Batch submissions refused by the ingest rate limiter",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.batchesTotal,
		m.batchDuration,
		m.patternsTotal,
		m.epistemicDebt,
		m.latticeNodes,
		m.latticeEdges,
		m.driftRatio,
		m.compliance,
		m.breakerState,
		m.proposalsTotal,
		m.rateLimitedTotal,
	)

	return m
}

// Handler returns the HTTP handler serving the dashboard metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBatch records one completed batch with its outcome and duration in
// seconds.
func (m *Metrics) ObserveBatch(outcome string, seconds float64, result domain.BatchResult) {
	m.batchesTotal.WithLabelValues(outcome).Inc()
	m.batchDuration.Observe(seconds)
	m.patternsTotal.WithLabelValues(string(domain.VerdictAccepted)).Add(float64(len(result.Accepted)))
	m.patternsTotal.WithLabelValues(string(domain.VerdictRejected)).Add(float64(len(result.Rejected)))
	m.driftRatio.Set(result.Epasa.DriftRatio)
	if result.Epasa.Compliant {
		m.compliance.Set(1)
	} else {
		m.compliance.Set(0)
	}
}

// ObserveLattice updates the lattice gauges from a snapshot.
func (m *Metrics) ObserveLattice(snap domain.LatticeSnapshot) {
	m.latticeNodes.Set(float64(snap.Nodes))
	m.latticeEdges.Set(float64(snap.Edges))
	m.epistemicDebt.Set(snap.EpistemicDebt)
}

// ObserveBreaker sets the breaker state gauge, zeroing the other states.
func (m *Metrics) ObserveBreaker(state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		if s == state {
			m.breakerState.WithLabelValues(s).Set(1)
		} else {
			m.breakerState.WithLabelValues(s).Set(0)
		}
	}
}

// ObserveProposal counts a proposal reaching a final state.
func (m *Metrics) ObserveProposal(state domain.ProposalState) {
	m.proposalsTotal.WithLabelValues(string(state)).Inc()
}

// ObserveRateLimited counts a refused batch submission.
func (m *Metrics) ObserveRateLimited() {
	m.rateLimitedTotal.Inc()
}
