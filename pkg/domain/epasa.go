package domain

import (
	"math"
	"time"
)

// Fingerprint is a snapshot of the engine's internal state, captured once per
// batch and compared against a pinned baseline to detect drift.
type Fingerprint struct {
	// ArchitecturalHash digests the component manifest (names and versions)
	// of the running engine.
	ArchitecturalHash string `json:"architectural_hash"`
	// WeightMerkleRoot summarises the batch weight values as a Merkle root.
	WeightMerkleRoot string `json:"weight_merkle_root"`
	// EthicalVector embeds the value configuration as a small float vector.
	EthicalVector []float64 `json:"ethical_vector"`
	// BehavioralRhythm is a histogram of recent activity timings.
	BehavioralRhythm []float64 `json:"behavioral_rhythm,omitempty"`
	// EntropyBeacon captures diversity of the batch weight distribution.
	EntropyBeacon float64   `json:"entropy_beacon"`
	CapturedAt    time.Time `json:"captured_at"`
}

// Drift computes the distance between two fingerprints. The architectural
// hash contributes a unit cost when it differs; vector fields contribute
// Euclidean distance over their common prefix; the entropy beacon contributes
// its absolute difference. The weight Merkle root is an exact-history pin for
// audit and is not a distance input: it differs between any two distinct
// batches by construction, so charging it would flag every batch as drifted.
func (f Fingerprint) Drift(other Fingerprint) float64 {
	var d float64
	if f.ArchitecturalHash != other.ArchitecturalHash {
		d++
	}
	d += euclidean(f.EthicalVector, other.EthicalVector)
	d += euclidean(f.BehavioralRhythm, other.BehavioralRhythm)
	d += math.Abs(f.EntropyBeacon - other.EntropyBeacon)
	return d
}

func euclidean(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// RecursionMetrics are the high-level safety metrics the watcher checks on
// every batch.
type RecursionMetrics struct {
	// CE is contradiction energy: the degree of tension across hypotheses.
	CE float64 `json:"ce"`
	// RDM is the reasoning depth measure: average recursion depth explored.
	RDM float64 `json:"rdm"`
	// GoR is generalisation of recursion: breadth of recursion across domains.
	GoR float64 `json:"gor"`
}

// Meets reports whether every metric reaches the given minimums. Higher
// values indicate healthier recursion.
func (m RecursionMetrics) Meets(min RecursionMetrics) bool {
	return m.CE >= min.CE && m.RDM >= min.RDM && m.GoR >= min.GoR
}

// EpasaStatus is the watcher's verdict for one batch.
type EpasaStatus struct {
	DriftRatio  float64 `json:"drift_ratio"`
	WithinDrift bool    `json:"within_drift"`
	MetricsOK   bool    `json:"metrics_ok"`
	Compliant   bool    `json:"compliant"`
}
