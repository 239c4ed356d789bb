package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDrift(t *testing.T) {
	a := Fingerprint{
		ArchitecturalHash: "arch",
		WeightMerkleRoot:  "root",
		EthicalVector:     []float64{0.5, 0.5},
		BehavioralRhythm:  []float64{1, 0},
		EntropyBeacon:     0.8,
	}

	assert.InDelta(t, 0.0, a.Drift(a), 1e-9)

	// An architectural hash change costs one unit.
	b := a
	b.ArchitecturalHash = "other"
	assert.InDelta(t, 1.0, a.Drift(b), 1e-9)

	// The Merkle root pins exact weight history for audit; it differs
	// between any two batches and is not a distance input.
	m := a
	m.WeightMerkleRoot = "other"
	assert.InDelta(t, 0.0, a.Drift(m), 1e-9)

	// Vector drift is Euclidean; entropy drift is absolute difference.
	c := a
	c.EthicalVector = []float64{0.5, 0.9}
	c.EntropyBeacon = 0.6
	assert.InDelta(t, 0.4+0.2, a.Drift(c), 1e-9)

	// Drift is symmetric.
	assert.InDelta(t, a.Drift(c), c.Drift(a), 1e-9)
}

func TestRecursionMetricsMeets(t *testing.T) {
	floor := RecursionMetrics{CE: 0.5, RDM: 0.5, GoR: 0.5}

	assert.True(t, RecursionMetrics{CE: 0.5, RDM: 0.5, GoR: 0.5}.Meets(floor))
	assert.True(t, RecursionMetrics{CE: 0.9, RDM: 0.9, GoR: 0.9}.Meets(floor))
	assert.False(t, RecursionMetrics{CE: 0.49, RDM: 0.9, GoR: 0.9}.Meets(floor))
	assert.False(t, RecursionMetrics{CE: 0.9, RDM: 0.9, GoR: 0.1}.Meets(floor))
}
