package governance

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solace-ai/solace/pkg/domain"
)

// QuorumConfig defines the tri-class approval gate.
type QuorumConfig struct {
	// ApprovalFraction is the fraction of each class's registered voters
	// that must approve. Zero selects the default 2/3.
	ApprovalFraction float64
	// ClassSizes declares the registered voter count per class. Every class
	// must be represented for any proposal to pass.
	ClassSizes map[domain.VoterClass]int
	// ProposalTTL bounds how long a proposal accepts ballots.
	ProposalTTL time.Duration
}

// DefaultQuorumConfig returns a three-voters-per-class, 2/3 approval setup.
func DefaultQuorumConfig() QuorumConfig {
	return QuorumConfig{
		ApprovalFraction: 2.0 / 3.0,
		ClassSizes: map[domain.VoterClass]int{
			domain.ClassHuman:     3,
			domain.ClassSynthetic: 3,
			domain.ClassGuardian:  3,
		},
		ProposalTTL: time.Hour,
	}
}

// Quorum tracks proposals and ballots and decides tri-class approval.
// A proposal passes only when every voter class independently reaches the
// approval fraction. Safe for concurrent use.
type Quorum struct {
	mu        sync.Mutex
	config    QuorumConfig
	proposals map[string]*trackedProposal
	now       func() time.Time
}

type trackedProposal struct {
	proposal domain.Proposal
	// ballots keyed by voter name; a later ballot replaces the earlier one.
	ballots map[string]domain.Ballot
}

// NewQuorum creates a quorum tracker.
func NewQuorum(config QuorumConfig) *Quorum {
	if config.ApprovalFraction <= 0 || config.ApprovalFraction > 1 {
		config.ApprovalFraction = 2.0 / 3.0
	}
	if len(config.ClassSizes) == 0 {
		config.ClassSizes = DefaultQuorumConfig().ClassSizes
	}
	if config.ProposalTTL <= 0 {
		config.ProposalTTL = time.Hour
	}
	return &Quorum{
		config:    config,
		proposals: make(map[string]*trackedProposal),
		now:       time.Now,
	}
}

// Propose opens a new proposal and returns it.
func (q *Quorum) Propose(kind domain.ProposalKind, payload map[string]any) domain.Proposal {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	p := domain.Proposal{
		ID:        uuid.NewString(),
		Kind:      kind,
		Payload:   payload,
		State:     domain.ProposalOpen,
		CreatedAt: now,
		ExpiresAt: now.Add(q.config.ProposalTTL),
	}
	q.proposals[p.ID] = &trackedProposal{
		proposal: p,
		ballots:  make(map[string]domain.Ballot),
	}
	return p
}

// Cast records a ballot. A voter's repeat ballot replaces their previous one.
// Returns the proposal's state after the ballot; approval is decided eagerly
// once every class reaches its threshold.
func (q *Quorum) Cast(proposalID string, ballot domain.Ballot) (domain.ProposalState, error) {
	if !knownClass(ballot.Class) {
		return "", domain.ErrUnknownVoterClass
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	tracked, ok := q.proposals[proposalID]
	if !ok {
		return "", domain.ErrProposalNotFound
	}
	now := q.now()
	if tracked.proposal.State != domain.ProposalOpen {
		return tracked.proposal.State, domain.ErrProposalDecided
	}
	if now.After(tracked.proposal.ExpiresAt) {
		tracked.proposal.State = domain.ProposalRejected
		return tracked.proposal.State, domain.ErrProposalExpired
	}

	ballot.CastAt = now
	tracked.ballots[ballot.Voter] = ballot

	if q.approvedLocked(tracked) {
		tracked.proposal.State = domain.ProposalApproved
	}
	return tracked.proposal.State, nil
}

// Reopen returns an approved proposal to the open state with its ballots
// retained, so a repeat ballot can trigger application again. Used when
// applying an approved proposal fails. Reopening an open proposal is a
// no-op; rejected proposals stay decided.
func (q *Quorum) Reopen(proposalID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	tracked, ok := q.proposals[proposalID]
	if !ok {
		return domain.ErrProposalNotFound
	}
	switch tracked.proposal.State {
	case domain.ProposalOpen:
		return nil
	case domain.ProposalApproved:
		tracked.proposal.State = domain.ProposalOpen
		return nil
	default:
		return domain.ErrProposalDecided
	}
}

// Get returns a proposal by ID, marking it rejected if it has expired while
// still open.
func (q *Quorum) Get(proposalID string) (domain.Proposal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tracked, ok := q.proposals[proposalID]
	if !ok {
		return domain.Proposal{}, domain.ErrProposalNotFound
	}
	if tracked.proposal.State == domain.ProposalOpen && q.now().After(tracked.proposal.ExpiresAt) {
		tracked.proposal.State = domain.ProposalRejected
	}
	return tracked.proposal, nil
}

// Tally returns per-class approval counts for a proposal.
func (q *Quorum) Tally(proposalID string) (map[domain.VoterClass]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	tracked, ok := q.proposals[proposalID]
	if !ok {
		return nil, domain.ErrProposalNotFound
	}
	tally := make(map[domain.VoterClass]int, len(domain.VoterClasses))
	for _, ballot := range tracked.ballots {
		if ballot.Approve {
			tally[ballot.Class]++
		}
	}
	return tally, nil
}

// approvedLocked checks whether every class has reached its threshold.
func (q *Quorum) approvedLocked(tracked *trackedProposal) bool {
	approvals := make(map[domain.VoterClass]int)
	for _, ballot := range tracked.ballots {
		if ballot.Approve {
			approvals[ballot.Class]++
		}
	}
	for _, class := range domain.VoterClasses {
		size := q.config.ClassSizes[class]
		if size <= 0 {
			// A class with no registered voters can never approve.
			return false
		}
		needed := int(math.Ceil(q.config.ApprovalFraction * float64(size)))
		if needed < 1 {
			needed = 1
		}
		if approvals[class] < needed {
			return false
		}
	}
	return true
}

func knownClass(class domain.VoterClass) bool {
	for _, c := range domain.VoterClasses {
		if c == class {
			return true
		}
	}
	return false
}
