package epasa

import (
	"math"
	"sync"

	"github.com/solace-ai/solace/pkg/domain"
)

// DefaultDriftThreshold is the maximum tolerated drift ratio (15%).
const DefaultDriftThreshold = 0.15

// DefaultMetricFloor is the minimum required value for each recursion metric.
var DefaultMetricFloor = domain.RecursionMetrics{CE: 0.5, RDM: 0.5, GoR: 0.5}

// structuralUnit is the drift contribution of an architectural hash change;
// it anchors the normalisation magnitude.
const structuralUnit = 1.0

// Watcher holds a baseline fingerprint and evaluates each batch fingerprint
// and recursion metrics against it. Safe for concurrent use.
type Watcher struct {
	mu             sync.RWMutex
	baseline       domain.Fingerprint
	pinned         bool
	driftThreshold float64
	metricFloor    domain.RecursionMetrics
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDriftThreshold overrides the default 0.15 drift threshold.
func WithDriftThreshold(t float64) WatcherOption {
	return func(w *Watcher) {
		if t > 0 {
			w.driftThreshold = t
		}
	}
}

// WithMetricFloor overrides the minimum recursion metrics.
func WithMetricFloor(m domain.RecursionMetrics) WatcherOption {
	return func(w *Watcher) { w.metricFloor = m }
}

// NewWatcher creates a watcher pinned to the given baseline.
func NewWatcher(baseline domain.Fingerprint, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		baseline:       baseline,
		pinned:         true,
		driftThreshold: DefaultDriftThreshold,
		metricFloor:    DefaultMetricFloor,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewBootstrapWatcher creates a watcher with no baseline. The first
// fingerprint that reflects actual activity becomes the baseline; until then
// every update is within drift.
func NewBootstrapWatcher(opts ...WatcherOption) *Watcher {
	w := NewWatcher(domain.Fingerprint{}, opts...)
	w.pinned = false
	return w
}

// Pinned reports whether a baseline has been pinned.
func (w *Watcher) Pinned() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pinned
}

// Baseline returns the pinned baseline fingerprint.
func (w *Watcher) Baseline() domain.Fingerprint {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.baseline
}

// SetBaseline rotates the baseline. Rotation is a governance-gated mutation;
// callers go through the quorum flow before invoking this.
func (w *Watcher) SetBaseline(fp domain.Fingerprint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.baseline = fp
	w.pinned = true
}

// DriftThreshold returns the configured threshold.
func (w *Watcher) DriftThreshold() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.driftThreshold
}

// EvaluateDrift returns the drift ratio between the baseline and the current
// fingerprint: raw drift normalised by the baseline's own magnitude, so
// identical fingerprints score 0 and a complete structural mismatch scores
// near 1. An unpinned watcher has nothing to compare against and reports 0.
func (w *Watcher) EvaluateDrift(current domain.Fingerprint) float64 {
	w.mu.RLock()
	baseline, pinned := w.baseline, w.pinned
	w.mu.RUnlock()

	if !pinned {
		return 0
	}
	raw := baseline.Drift(current)
	return raw / (magnitude(baseline) + 1e-8)
}

// Update evaluates the current fingerprint and metrics and returns the batch
// status. On a bootstrap watcher the first fingerprint showing activity is
// pinned as the baseline and scores zero drift; idle fingerprints pass
// without pinning. Nil metrics means no metrics provider is configured and
// the metric check passes vacuously.
func (w *Watcher) Update(current domain.Fingerprint, metrics *domain.RecursionMetrics) domain.EpasaStatus {
	w.mu.Lock()
	if !w.pinned && active(current) {
		w.baseline = current
		w.pinned = true
	}
	baseline, pinned := w.baseline, w.pinned
	threshold := w.driftThreshold
	floor := w.metricFloor
	w.mu.Unlock()

	var ratio float64
	if pinned {
		ratio = baseline.Drift(current) / (magnitude(baseline) + 1e-8)
	}

	withinDrift := ratio <= threshold
	metricsOK := metrics == nil || metrics.Meets(floor)
	return domain.EpasaStatus{
		DriftRatio:  ratio,
		WithinDrift: withinDrift,
		MetricsOK:   metricsOK,
		Compliant:   withinDrift && metricsOK,
	}
}

// active reports whether the fingerprint reflects any recorded activity.
func active(fp domain.Fingerprint) bool {
	for _, v := range fp.BehavioralRhythm {
		if v > 0 {
			return true
		}
	}
	return false
}

// magnitude is the worst-case drift scale of a fingerprint: the structural
// unit plus the vector norms and the entropy beacon.
func magnitude(fp domain.Fingerprint) float64 {
	return structuralUnit + norm(fp.EthicalVector) + norm(fp.BehavioralRhythm) + math.Abs(fp.EntropyBeacon)
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// BatchMetrics derives recursion metrics from a batch: CE is the mean
// tension, RDM scales with lattice depth explored (resonance iterations over
// nodes touched), GoR with the spread of distinct patterns.
func BatchMetrics(weights []float64, patterns, nodes int) domain.RecursionMetrics {
	var ce float64
	for _, w := range weights {
		ce += w
	}
	if len(weights) > 0 {
		ce /= float64(len(weights))
	}
	rdm := 0.0
	if nodes > 0 {
		rdm = math.Min(1.0, float64(patterns)/float64(nodes)+0.5)
	}
	gor := 0.0
	if len(weights) > 0 {
		gor = math.Min(1.0, float64(patterns)/float64(len(weights))+0.25)
	}
	return domain.RecursionMetrics{CE: ce, RDM: rdm, GoR: gor}
}
