package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-ai/solace/pkg/domain"
)

func singleVoterQuorum() *Quorum {
	return NewQuorum(QuorumConfig{
		ApprovalFraction: 1.0,
		ClassSizes: map[domain.VoterClass]int{
			domain.ClassHuman:     1,
			domain.ClassSynthetic: 1,
			domain.ClassGuardian:  1,
		},
		ProposalTTL: time.Hour,
	})
}

func TestProposeOpensProposal(t *testing.T) {
	q := singleVoterQuorum()

	p := q.Propose(domain.ProposalRotateBaseline, map[string]any{"baseline": "candidate"})

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.ProposalOpen, p.State)
	assert.True(t, p.ExpiresAt.After(p.CreatedAt))

	got, err := q.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestCastTriClassApproval(t *testing.T) {
	q := singleVoterQuorum()
	p := q.Propose(domain.ProposalUpdateValues, nil)

	state, err := q.Cast(p.ID, domain.Ballot{Voter: "alice", Class: domain.ClassHuman, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalOpen, state, "one class alone must not decide")

	state, err = q.Cast(p.ID, domain.Ballot{Voter: "model-7", Class: domain.ClassSynthetic, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalOpen, state)

	state, err = q.Cast(p.ID, domain.Ballot{Voter: "watchdog", Class: domain.ClassGuardian, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalApproved, state)
}

func TestCastEveryClassMustApprove(t *testing.T) {
	q := singleVoterQuorum()
	p := q.Propose(domain.ProposalUpdateValues, nil)

	_, err := q.Cast(p.ID, domain.Ballot{Voter: "alice", Class: domain.ClassHuman, Approve: true})
	require.NoError(t, err)
	_, err = q.Cast(p.ID, domain.Ballot{Voter: "model-7", Class: domain.ClassSynthetic, Approve: true})
	require.NoError(t, err)
	state, err := q.Cast(p.ID, domain.Ballot{Voter: "watchdog", Class: domain.ClassGuardian, Approve: false})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalOpen, state)
}

func TestCastRepeatBallotReplaces(t *testing.T) {
	q := singleVoterQuorum()
	p := q.Propose(domain.ProposalUpdateValues, nil)

	_, err := q.Cast(p.ID, domain.Ballot{Voter: "alice", Class: domain.ClassHuman, Approve: true})
	require.NoError(t, err)
	_, err = q.Cast(p.ID, domain.Ballot{Voter: "alice", Class: domain.ClassHuman, Approve: false})
	require.NoError(t, err)

	tally, err := q.Tally(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, tally[domain.ClassHuman])
}

func TestReopenApprovedProposalAllowsRetry(t *testing.T) {
	q := singleVoterQuorum()
	p := q.Propose(domain.ProposalRotateBaseline, nil)

	_, err := q.Cast(p.ID, domain.Ballot{Voter: "alice", Class: domain.ClassHuman, Approve: true})
	require.NoError(t, err)
	_, err = q.Cast(p.ID, domain.Ballot{Voter: "model-7", Class: domain.ClassSynthetic, Approve: true})
	require.NoError(t, err)
	state, err := q.Cast(p.ID, domain.Ballot{Voter: "watchdog", Class: domain.ClassGuardian, Approve: true})
	require.NoError(t, err)
	require.Equal(t, domain.ProposalApproved, state)

	require.NoError(t, q.Reopen(p.ID))
	got, err := q.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalOpen, got.State)

	// The ballots were retained; a repeat ballot re-triggers approval.
	state, err = q.Cast(p.ID, domain.Ballot{Voter: "watchdog", Class: domain.ClassGuardian, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalApproved, state)

	// Reopening an open proposal is a no-op; unknown IDs error.
	p2 := q.Propose(domain.ProposalUpdateValues, nil)
	assert.NoError(t, q.Reopen(p2.ID))
	assert.ErrorIs(t, q.Reopen("nope"), domain.ErrProposalNotFound)
}

func TestCastFractionalThreshold(t *testing.T) {
	// 2/3 of three voters per class means two approvals per class.
	q := NewQuorum(DefaultQuorumConfig())
	p := q.Propose(domain.ProposalUpdateValues, nil)

	voters := []struct {
		name  string
		class domain.VoterClass
	}{
		{"h1", domain.ClassHuman}, {"h2", domain.ClassHuman},
		{"s1", domain.ClassSynthetic}, {"s2", domain.ClassSynthetic},
		{"g1", domain.ClassGuardian},
	}
	for _, v := range voters {
		_, err := q.Cast(p.ID, domain.Ballot{Voter: v.name, Class: v.class, Approve: true})
		require.NoError(t, err)
	}

	got, err := q.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalOpen, got.State, "guardian class is one short")

	state, err := q.Cast(p.ID, domain.Ballot{Voter: "g2", Class: domain.ClassGuardian, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalApproved, state)
}

func TestCastUnknownClass(t *testing.T) {
	q := singleVoterQuorum()
	p := q.Propose(domain.ProposalUpdateValues, nil)

	_, err := q.Cast(p.ID, domain.Ballot{Voter: "x", Class: "alien", Approve: true})
	assert.ErrorIs(t, err, domain.ErrUnknownVoterClass)
}

func TestCastUnknownProposal(t *testing.T) {
	q := singleVoterQuorum()
	_, err := q.Cast("nope", domain.Ballot{Voter: "x", Class: domain.ClassHuman})
	assert.ErrorIs(t, err, domain.ErrProposalNotFound)
}

func TestCastOnDecidedProposal(t *testing.T) {
	q := singleVoterQuorum()
	p := q.Propose(domain.ProposalUpdateValues, nil)

	for _, b := range []domain.Ballot{
		{Voter: "a", Class: domain.ClassHuman, Approve: true},
		{Voter: "b", Class: domain.ClassSynthetic, Approve: true},
		{Voter: "c", Class: domain.ClassGuardian, Approve: true},
	} {
		_, err := q.Cast(p.ID, b)
		require.NoError(t, err)
	}

	state, err := q.Cast(p.ID, domain.Ballot{Voter: "d", Class: domain.ClassHuman, Approve: false})
	assert.ErrorIs(t, err, domain.ErrProposalDecided)
	assert.Equal(t, domain.ProposalApproved, state)
}

func TestProposalExpiry(t *testing.T) {
	q := singleVoterQuorum()
	base := time.Now()
	q.now = func() time.Time { return base }

	p := q.Propose(domain.ProposalUpdateValues, nil)

	q.now = func() time.Time { return base.Add(2 * time.Hour) }

	_, err := q.Cast(p.ID, domain.Ballot{Voter: "a", Class: domain.ClassHuman, Approve: true})
	assert.ErrorIs(t, err, domain.ErrProposalExpired)

	got, err := q.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalRejected, got.State)
}

func TestGetExpiresOpenProposal(t *testing.T) {
	q := singleVoterQuorum()
	base := time.Now()
	q.now = func() time.Time { return base }

	p := q.Propose(domain.ProposalUpdateValues, nil)
	q.now = func() time.Time { return base.Add(90 * time.Minute) }

	got, err := q.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalRejected, got.State)
}

func TestNewQuorumDefaultsBadConfig(t *testing.T) {
	q := NewQuorum(QuorumConfig{ApprovalFraction: 7, ProposalTTL: -1})
	assert.InDelta(t, 2.0/3.0, q.config.ApprovalFraction, 1e-9)
	assert.Equal(t, time.Hour, q.config.ProposalTTL)
	assert.NotEmpty(t, q.config.ClassSizes)
}
