package governance

import (
	"sync"
	"time"

	"github.com/solace-ai/solace/pkg/domain"
)

// BreakerState represents the state of the drift breaker.
type BreakerState string

const (
	// StateClosed indicates processing is allowed.
	StateClosed BreakerState = "closed"
	// StateOpen indicates processing is frozen.
	StateOpen BreakerState = "open"
	// StateHalfOpen indicates probe batches are testing recovery.
	StateHalfOpen BreakerState = "half-open"
)

// DriftBreakerConfig defines thresholds for freezing the pipeline.
type DriftBreakerConfig struct {
	// MaxViolations is the number of consecutive non-compliant batch
	// statuses before the breaker opens.
	MaxViolations int
	// Cooldown is how long the breaker stays open before allowing probes.
	Cooldown time.Duration
	// HalfOpenProbes is the number of probe batches allowed while half-open.
	HalfOpenProbes int
}

// DefaultDriftBreakerConfig returns sensible defaults.
func DefaultDriftBreakerConfig() DriftBreakerConfig {
	return DriftBreakerConfig{
		MaxViolations:  3,
		Cooldown:       30 * time.Second,
		HalfOpenProbes: 1,
	}
}

// DriftBreaker freezes batch processing when the E-PASA watcher reports
// repeated non-compliance, and thaws it through a half-open probe phase.
type DriftBreaker struct {
	mu                    sync.Mutex
	state                 BreakerState
	config                DriftBreakerConfig
	consecutiveViolations int
	halfOpenProbes        int
	openUntil             time.Time
	lastStateChange       time.Time
}

// NewDriftBreaker creates a drift breaker with the provided configuration.
func NewDriftBreaker(config DriftBreakerConfig) *DriftBreaker {
	if config.MaxViolations <= 0 {
		config.MaxViolations = 3
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = 1
	}
	return &DriftBreaker{
		state:           StateClosed,
		config:          config,
		lastStateChange: time.Now(),
	}
}

// Allow reports whether a batch may be processed now. When open, it returns
// domain.ErrFrozen until the cooldown elapses; then it transitions to
// half-open and admits a bounded number of probe batches.
func (b *DriftBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if now.After(b.openUntil) {
			b.transitionLocked(StateHalfOpen, now)
			b.halfOpenProbes++
			return nil
		}
		return domain.ErrFrozen
	case StateHalfOpen:
		if b.halfOpenProbes < b.config.HalfOpenProbes {
			b.halfOpenProbes++
			return nil
		}
		return domain.ErrFrozen
	}
	return nil
}

// Record feeds one batch status into the breaker. Compliant statuses reset
// the violation count and close a half-open breaker; non-compliant statuses
// accumulate and open it.
func (b *DriftBreaker) Record(status domain.EpasaStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if status.Compliant {
		b.consecutiveViolations = 0
		if b.state == StateHalfOpen {
			b.transitionLocked(StateClosed, now)
		}
		return
	}

	b.consecutiveViolations++
	switch b.state {
	case StateHalfOpen:
		// A failed probe re-opens immediately.
		b.openLocked(now)
	case StateClosed:
		if b.consecutiveViolations >= b.config.MaxViolations {
			b.openLocked(now)
		}
	case StateOpen:
		// Already frozen.
	}
}

// State returns the current breaker state.
func (b *DriftBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Violations returns the current consecutive violation count.
func (b *DriftBreaker) Violations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveViolations
}

func (b *DriftBreaker) openLocked(now time.Time) {
	b.transitionLocked(StateOpen, now)
	b.openUntil = now.Add(b.config.Cooldown)
}

func (b *DriftBreaker) transitionLocked(state BreakerState, now time.Time) {
	if b.state == state {
		return
	}
	b.state = state
	b.lastStateChange = now
	if state != StateHalfOpen {
		b.halfOpenProbes = 0
	}
}
