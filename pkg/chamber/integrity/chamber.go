// Package integrity implements the integrity chamber: the final stage of the
// tri-chamber pipeline.
//
// The chamber gates candidate patterns against core values. Rather than
// erasing contradictions it flags violating patterns as rejected; rejected
// patterns remain available for later revisiting. The stock gate is a dual
// threshold on average tension and total epistemic debt; a Rego-backed value
// gate can be layered on top.
package integrity

import (
	"context"
	"fmt"
	"sync"

	"github.com/solace-ai/solace/pkg/domain"
)

// ValueGate evaluates a pattern against an externally defined values policy.
// Implementations must be safe for concurrent use.
type ValueGate interface {
	Allow(ctx context.Context, p domain.Pattern) (allowed bool, reason string, err error)
}

// Chamber gates patterns against core values. Safe for concurrent use.
type Chamber struct {
	mu     sync.RWMutex
	values domain.CoreValues
	gate   ValueGate
}

// New creates an integrity chamber with the given core values.
func New(values domain.CoreValues) *Chamber {
	if values.MaxTension <= 0 {
		values.MaxTension = domain.DefaultCoreValues().MaxTension
	}
	if values.MaxDebt <= 0 {
		values.MaxDebt = domain.DefaultCoreValues().MaxDebt
	}
	return &Chamber{values: values}
}

// SetGate installs an additional values policy gate. A nil gate removes it.
func (c *Chamber) SetGate(gate ValueGate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
}

// SetValues replaces the core values, typically on config hot reload.
func (c *Chamber) SetValues(values domain.CoreValues) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = values
}

// Values returns the current core values.
func (c *Chamber) Values() domain.CoreValues {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values
}

// Evaluate gates each pattern. A pattern is accepted when its average tension
// and total debt are within the core values AND, if a gate is installed, the
// gate allows it. Evaluation order is preserved.
func (c *Chamber) Evaluate(ctx context.Context, patterns []domain.Pattern) ([]domain.Evaluation, error) {
	c.mu.RLock()
	values := c.values
	gate := c.gate
	c.mu.RUnlock()

	evals := make([]domain.Evaluation, 0, len(patterns))
	for _, p := range patterns {
		eval := domain.Evaluation{Pattern: p, Verdict: domain.VerdictAccepted}
		switch {
		case p.AverageTension > values.MaxTension:
			eval.Verdict = domain.VerdictRejected
			eval.Reason = "tension_exceeded"
		case p.TotalDebt > values.MaxDebt:
			eval.Verdict = domain.VerdictRejected
			eval.Reason = "debt_exceeded"
		}
		if eval.Verdict == domain.VerdictAccepted && gate != nil {
			allowed, reason, err := gate.Allow(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("values gate: %w", err)
			}
			if !allowed {
				eval.Verdict = domain.VerdictRejected
				if reason == "" {
					reason = "values_policy_denied"
				}
				eval.Reason = reason
			}
		}
		evals = append(evals, eval)
	}
	return evals, nil
}

// Split partitions evaluations into accepted and rejected patterns.
func Split(evals []domain.Evaluation) (accepted, rejected []domain.Pattern) {
	for _, e := range evals {
		if e.Verdict == domain.VerdictAccepted {
			accepted = append(accepted, e.Pattern)
		} else {
			rejected = append(rejected, e.Pattern)
		}
	}
	return accepted, rejected
}
