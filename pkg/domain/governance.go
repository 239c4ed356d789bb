package domain

import "time"

// VoterClass identifies one of the three constituencies whose independent
// approval a governance proposal needs.
type VoterClass string

const (
	// ClassHuman represents human operators.
	ClassHuman VoterClass = "human"
	// ClassSynthetic represents synthetic (model) reviewers.
	ClassSynthetic VoterClass = "synthetic"
	// ClassGuardian represents automated guardian processes such as the
	// E-PASA watcher.
	ClassGuardian VoterClass = "guardian"
)

// VoterClasses lists every recognised class. Quorum requires approval from
// all of them.
var VoterClasses = []VoterClass{ClassHuman, ClassSynthetic, ClassGuardian}

// ProposalKind names the mutation a proposal authorises.
type ProposalKind string

const (
	// ProposalRotateBaseline replaces the pinned baseline fingerprint.
	ProposalRotateBaseline ProposalKind = "rotate_baseline"
	// ProposalUpdateValues changes the integrity chamber's core values.
	ProposalUpdateValues ProposalKind = "update_values"
)

// Ballot is one voter's position on a proposal. A voter's later ballot
// replaces their earlier one.
type Ballot struct {
	Voter   string     `json:"voter"`
	Class   VoterClass `json:"class"`
	Approve bool       `json:"approve"`
	CastAt  time.Time  `json:"cast_at"`
}

// ProposalState is the lifecycle state of a proposal.
type ProposalState string

const (
	ProposalOpen     ProposalState = "open"
	ProposalApproved ProposalState = "approved"
	ProposalRejected ProposalState = "rejected"
)

// Proposal is a pending governance mutation awaiting tri-class quorum.
type Proposal struct {
	ID        string         `json:"id"`
	Kind      ProposalKind   `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	State     ProposalState  `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}
