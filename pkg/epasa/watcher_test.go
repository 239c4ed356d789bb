package epasa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-ai/solace/pkg/domain"
)

func healthyMetrics() domain.RecursionMetrics {
	return domain.RecursionMetrics{CE: 0.6, RDM: 0.6, GoR: 0.6}
}

func TestUpdateIdenticalFingerprintIsCompliant(t *testing.T) {
	c := NewComputer(nil, "")
	baseline := c.Compute([]float64{0.3, 0.5})
	w := NewWatcher(baseline)

	metrics := healthyMetrics()
	status := w.Update(c.Compute([]float64{0.3, 0.5}), &metrics)

	assert.InDelta(t, 0.0, status.DriftRatio, 1e-9)
	assert.True(t, status.WithinDrift)
	assert.True(t, status.MetricsOK)
	assert.True(t, status.Compliant)
}

func TestUpdateStructuralChangeDrifts(t *testing.T) {
	base := NewComputer(nil, "")
	baseline := base.Compute([]float64{0.3})

	// A component version bump changes the architectural hash; with a tight
	// threshold that alone breaches the drift budget.
	mutated := NewComputer([]Component{{Name: "lattice", Version: "v2"}}, "")
	w := NewWatcher(baseline, WithDriftThreshold(0.01))

	metrics := healthyMetrics()
	status := w.Update(mutated.Compute([]float64{0.3}), &metrics)

	assert.Greater(t, status.DriftRatio, 0.01)
	assert.False(t, status.WithinDrift)
	assert.False(t, status.Compliant)
}

func TestUpdateNilMetricsPassVacuously(t *testing.T) {
	c := NewComputer(nil, "")
	w := NewWatcher(c.Compute(nil))

	status := w.Update(c.Compute(nil), nil)
	assert.True(t, status.MetricsOK)
	assert.True(t, status.Compliant)
}

func TestUpdateMetricFloor(t *testing.T) {
	c := NewComputer(nil, "")
	w := NewWatcher(c.Compute(nil))

	weak := domain.RecursionMetrics{CE: 0.4, RDM: 0.9, GoR: 0.9}
	status := w.Update(c.Compute(nil), &weak)

	assert.True(t, status.WithinDrift)
	assert.False(t, status.MetricsOK)
	assert.False(t, status.Compliant)
}

func TestWithMetricFloorOverride(t *testing.T) {
	c := NewComputer(nil, "")
	w := NewWatcher(c.Compute(nil), WithMetricFloor(domain.RecursionMetrics{}))

	zero := domain.RecursionMetrics{}
	status := w.Update(c.Compute(nil), &zero)
	assert.True(t, status.MetricsOK)
}

func TestBootstrapWatcherPinsFirstActiveFingerprint(t *testing.T) {
	c := NewComputer(nil, "")
	w := NewBootstrapWatcher()
	metrics := healthyMetrics()

	// Idle fingerprints pass without pinning anything.
	idle := w.Update(c.Compute(nil), nil)
	assert.True(t, idle.Compliant)
	assert.InDelta(t, 0.0, idle.DriftRatio, 1e-9)
	assert.False(t, w.Pinned())

	// The first fingerprint with activity becomes the baseline.
	first := c.Compute([]float64{0.2, 0.6})
	status := w.Update(first, &metrics)
	assert.True(t, status.Compliant)
	assert.InDelta(t, 0.0, status.DriftRatio, 1e-9)
	require.True(t, w.Pinned())
	assert.Equal(t, first.WeightMerkleRoot, w.Baseline().WeightMerkleRoot)

	// Later updates are measured against that pin.
	far := w.Update(c.Compute([]float64{0.99, 0.99, 0.99, 0.99}), &metrics)
	assert.Greater(t, far.DriftRatio, 0.0)
	assert.Equal(t, first.WeightMerkleRoot, w.Baseline().WeightMerkleRoot)
}

func TestSetBaselineRotation(t *testing.T) {
	c := NewComputer(nil, "")
	w := NewWatcher(c.Compute([]float64{0.1}))

	next := c.Compute([]float64{0.9, 0.9, 0.9})
	require.Greater(t, w.EvaluateDrift(next), 0.0)

	w.SetBaseline(next)
	assert.InDelta(t, 0.0, w.EvaluateDrift(next), 1e-9)
	assert.Equal(t, next.WeightMerkleRoot, w.Baseline().WeightMerkleRoot)
}

func TestDriftThresholdDefaults(t *testing.T) {
	c := NewComputer(nil, "")
	w := NewWatcher(c.Compute(nil))
	assert.InDelta(t, DefaultDriftThreshold, w.DriftThreshold(), 1e-9)

	// Non-positive overrides are ignored.
	w = NewWatcher(c.Compute(nil), WithDriftThreshold(-1))
	assert.InDelta(t, DefaultDriftThreshold, w.DriftThreshold(), 1e-9)
}

func TestBatchMetrics(t *testing.T) {
	m := BatchMetrics([]float64{0.4, 0.8}, 2, 4)
	assert.InDelta(t, 0.6, m.CE, 1e-9)
	assert.InDelta(t, 1.0, m.RDM, 1e-9)
	assert.InDelta(t, 1.0, m.GoR, 1e-9)

	empty := BatchMetrics(nil, 0, 0)
	assert.Zero(t, empty.CE)
	assert.Zero(t, empty.RDM)
	assert.Zero(t, empty.GoR)
	assert.False(t, empty.Meets(DefaultMetricFloor))
}
