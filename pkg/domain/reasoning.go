package domain

import (
	"time"

	"github.com/google/uuid"
)

// WeightedInput is a raw item after the weight chamber has scored it.
//
// Tension is the contradiction score in [0, 1]: how strongly the item
// challenges what the system has already seen. Solace inverts the usual
// filtration order: contradictory inputs are weighted UP, not filtered
// out. EpistemicDebt records the unresolved contradiction the item carries
// into memory; at assignment time it equals Tension.
type WeightedInput struct {
	Content       string    `json:"content"`
	Source        string    `json:"source,omitempty"`
	Tension       float64   `json:"tension"`
	EpistemicDebt float64   `json:"epistemic_debt"`
	WeighedAt     time.Time `json:"weighed_at"`
}

// Pattern is a cluster of weighted inputs produced by the pattern chamber.
// Divergent patterns coexist; the chamber never collapses contradictions.
type Pattern struct {
	ID             string          `json:"id"`
	Members        []WeightedInput `json:"members"`
	AverageTension float64         `json:"average_tension"`
	TotalDebt      float64         `json:"total_debt"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewPatternID returns a fresh pattern identity.
func NewPatternID() string {
	return uuid.NewString()
}

// CoreValues are the non-negotiable thresholds the integrity chamber gates
// patterns against.
type CoreValues struct {
	// MaxTension is the highest average tension an accepted pattern may carry.
	MaxTension float64 `json:"max_tension" yaml:"max_tension"`
	// MaxDebt is the highest total epistemic debt an accepted pattern may carry.
	MaxDebt float64 `json:"max_debt" yaml:"max_debt"`
}

// DefaultCoreValues returns the stock dual thresholds.
func DefaultCoreValues() CoreValues {
	return CoreValues{MaxTension: 0.7, MaxDebt: 1.5}
}

// Verdict is the integrity chamber's decision for a single pattern.
type Verdict string

const (
	// VerdictAccepted marks a pattern that passed the value gate.
	VerdictAccepted Verdict = "accepted"
	// VerdictRejected marks a pattern held back as a revisitable contradiction.
	VerdictRejected Verdict = "rejected"
)

// Evaluation pairs a pattern with its integrity verdict.
type Evaluation struct {
	Pattern Pattern `json:"pattern"`
	Verdict Verdict `json:"verdict"`
	// Reason is a short machine-readable explanation, e.g. "tension_exceeded".
	Reason string `json:"reason,omitempty"`
}

// BatchResult is the outcome of one pipeline pass over a batch of items.
type BatchResult struct {
	BatchID       string       `json:"batch_id"`
	Accepted      []Pattern    `json:"accepted"`
	Rejected      []Pattern    `json:"rejected"`
	EpistemicDebt float64      `json:"epistemic_debt"`
	Epasa         EpasaStatus  `json:"epasa"`
	Fingerprint   *Fingerprint `json:"fingerprint,omitempty"`
	ProcessedAt   time.Time    `json:"processed_at"`
}

// LatticeSnapshot is a read-only view of the contradiction lattice used by
// status endpoints and dashboards.
type LatticeSnapshot struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	EpistemicDebt float64 `json:"epistemic_debt"`
}
