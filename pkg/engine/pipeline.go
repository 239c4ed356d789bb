package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/solace-ai/solace/internal/governance"
	"github.com/solace-ai/solace/pkg/chamber/integrity"
	"github.com/solace-ai/solace/pkg/chamber/pattern"
	"github.com/solace-ai/solace/pkg/chamber/weight"
	"github.com/solace-ai/solace/pkg/config"
	"github.com/solace-ai/solace/pkg/dashboard"
	"github.com/solace-ai/solace/pkg/domain"
	"github.com/solace-ai/solace/pkg/epasa"
	"github.com/solace-ai/solace/pkg/lattice"
	"github.com/solace-ai/solace/pkg/storage"
	"github.com/solace-ai/solace/pkg/telemetry"
)

// Item is one raw input submitted to the pipeline. Contradiction, when set,
// overrides the weight chamber's own estimate.
type Item struct {
	Content       string   `json:"content"`
	Source        string   `json:"source,omitempty"`
	Contradiction *float64 `json:"contradiction,omitempty"`
}

// MetricsProvider derives recursion metrics for a batch. A nil provider
// selects epasa.BatchMetrics.
type MetricsProvider func(weights []float64, patterns, nodes int) domain.RecursionMetrics

// Options wires the pipeline's collaborators.
type Options struct {
	Logger    zerolog.Logger
	Weight    *weight.Chamber
	Pattern   *pattern.Chamber
	Integrity *integrity.Chamber
	Lattice   *lattice.Lattice
	Computer  *epasa.Computer
	Watcher   *epasa.Watcher
	Breaker   *governance.DriftBreaker
	Store     storage.BatchStore
	Vault     storage.BaselineVault
	Dashboard *dashboard.Metrics
	Metrics   MetricsProvider

	BleedThreshold      float64
	ResonanceIterations int
}

// fingerprintWindow bounds how many recent weights feed a fingerprint. A
// trailing window smooths per-batch sampling noise out of the drift signal.
const fingerprintWindow = 256

// Pipeline runs batches through the three chambers and the lattice, and
// reports each batch to the E-PASA watcher.
type Pipeline struct {
	logger    zerolog.Logger
	weight    *weight.Chamber
	pattern   *pattern.Chamber
	integrity *integrity.Chamber
	lattice   *lattice.Lattice
	computer  *epasa.Computer
	watcher   *epasa.Watcher
	breaker   *governance.DriftBreaker
	store     storage.BatchStore
	vault     storage.BaselineVault
	dash      *dashboard.Metrics
	metrics   MetricsProvider
	tracer    trace.Tracer
	pinOnce   sync.Once

	// mu guards the hot-reloadable lattice settings below; ApplyConfig
	// writes them from the config-reload goroutine while Process reads them.
	mu                  sync.RWMutex
	bleedThreshold      float64
	resonanceIterations int
}

// New creates a pipeline. Missing collaborators are given working defaults;
// the watcher starts from the vault baseline when one is pinned, otherwise
// it pins the first active batch it sees.
func New(opts Options) (*Pipeline, error) {
	if opts.Weight == nil {
		opts.Weight = weight.New()
	}
	if opts.Pattern == nil {
		opts.Pattern = pattern.New(0)
	}
	if opts.Integrity == nil {
		opts.Integrity = integrity.New(domain.DefaultCoreValues())
	}
	if opts.Lattice == nil {
		opts.Lattice = lattice.New()
	}
	if opts.Computer == nil {
		opts.Computer = epasa.NewComputer(nil, "")
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemoryBatchStore()
	}
	if opts.Vault == nil {
		opts.Vault = storage.NewMemoryBaselineVault()
	}
	if opts.Metrics == nil {
		opts.Metrics = epasa.BatchMetrics
	}
	if opts.ResonanceIterations <= 0 {
		opts.ResonanceIterations = 1
	}

	if opts.Watcher == nil {
		baseline, err := opts.Vault.GetBaseline(context.Background(), storage.DefaultBaseline)
		if err == nil {
			opts.Watcher = epasa.NewWatcher(baseline)
		} else {
			// No pinned baseline yet: the first active batch becomes it.
			opts.Watcher = epasa.NewBootstrapWatcher()
		}
	}
	if opts.Breaker == nil {
		opts.Breaker = governance.NewDriftBreaker(governance.DefaultDriftBreakerConfig())
	}

	return &Pipeline{
		logger:              opts.Logger,
		weight:              opts.Weight,
		pattern:             opts.Pattern,
		integrity:           opts.Integrity,
		lattice:             opts.Lattice,
		computer:            opts.Computer,
		watcher:             opts.Watcher,
		breaker:             opts.Breaker,
		store:               opts.Store,
		vault:               opts.Vault,
		dash:                opts.Dashboard,
		metrics:             opts.Metrics,
		tracer:              otel.Tracer("solace.pipeline"),
		bleedThreshold:      opts.BleedThreshold,
		resonanceIterations: opts.ResonanceIterations,
	}, nil
}

// Process runs one batch through all three chambers, persists the resulting
// patterns into the lattice, and updates the watcher. Empty batches are
// valid. Returns domain.ErrFrozen while the drift breaker is open.
func (p *Pipeline) Process(ctx context.Context, items []Item) (domain.BatchResult, error) {
	batchID := uuid.NewString()
	started := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.size", len(items)),
	))
	defer span.End()

	if err := p.breaker.Allow(); err != nil {
		telemetry.RecordStageMetrics(ctx, telemetry.StageMetrics{
			BatchID: batchID, Stage: "admission", Outcome: telemetry.OutcomeFrozen,
		})
		if p.dash != nil {
			p.dash.ObserveBatch("frozen", time.Since(started).Seconds(), domain.BatchResult{BatchID: batchID})
			p.dash.ObserveBreaker(string(p.breaker.State()))
		}
		p.logger.Warn().Str("batch_id", batchID).Msg("batch refused: drift breaker open")
		return domain.BatchResult{}, err
	}

	// Weigh
	weighted, weights := p.runWeigh(ctx, batchID, items)

	// Cluster
	patterns := p.runStage(ctx, batchID, "cluster", func() []domain.Pattern {
		return p.pattern.Construct(weighted)
	})

	// Evaluate
	evalStart := time.Now()
	evals, err := p.integrity.Evaluate(ctx, patterns)
	if err != nil {
		telemetry.RecordStageMetrics(ctx, telemetry.StageMetrics{
			BatchID: batchID, Stage: "evaluate", Outcome: telemetry.OutcomeError, Duration: time.Since(evalStart),
		})
		return domain.BatchResult{}, fmt.Errorf("integrity evaluation: %w", err)
	}
	accepted, rejected := integrity.Split(evals)
	telemetry.RecordStageMetrics(ctx, telemetry.StageMetrics{
		BatchID: batchID, Stage: "evaluate", Outcome: telemetry.OutcomeOK,
		Duration: time.Since(evalStart), Rejected: len(rejected),
	})

	// Memory: insert all patterns (accepted AND rejected - contradictions
	// are preserved, not erased), link batch-mates that share vocabulary,
	// then resonate and bleed.
	p.runMemory(ctx, batchID, patterns)

	// Fingerprint + watch. The fingerprint covers the trailing weight
	// window rather than this batch alone; empty batches carry no metrics.
	fp := p.computer.Compute(p.recentWeights(fingerprintWindow))
	var batchMetrics *domain.RecursionMetrics
	if len(weights) > 0 {
		m := p.metrics(weights, len(patterns), p.lattice.Len())
		batchMetrics = &m
	}
	status := p.watcher.Update(fp, batchMetrics)
	if p.watcher.Pinned() {
		// Persist the operating baseline so restarts compare against the
		// same fingerprint.
		p.pinOnce.Do(func() {
			if err := p.vault.PutBaseline(ctx, storage.DefaultBaseline, p.watcher.Baseline()); err != nil {
				p.logger.Warn().Err(err).Msg("persist pinned baseline")
			}
		})
	}
	p.breaker.Record(status)
	telemetry.RecordDriftEvent(span, status.Compliant, status.DriftRatio)

	result := domain.BatchResult{
		BatchID:       batchID,
		Accepted:      accepted,
		Rejected:      rejected,
		EpistemicDebt: p.lattice.Debt(),
		Epasa:         status,
		Fingerprint:   &fp,
		ProcessedAt:   time.Now().UTC(),
	}

	if err := p.store.SaveBatch(ctx, result); err != nil {
		return domain.BatchResult{}, fmt.Errorf("save batch: %w", err)
	}

	if p.dash != nil {
		outcome := "compliant"
		if !status.Compliant {
			outcome = "non_compliant"
		}
		p.dash.ObserveBatch(outcome, time.Since(started).Seconds(), result)
		p.dash.ObserveLattice(p.lattice.Snapshot())
		p.dash.ObserveBreaker(string(p.breaker.State()))
	}

	p.logger.Info().
		Str("batch_id", batchID).
		Int("items", len(items)).
		Int("accepted", len(accepted)).
		Int("rejected", len(rejected)).
		Float64("drift_ratio", status.DriftRatio).
		Bool("compliant", status.Compliant).
		Msg("batch processed")

	return result, nil
}

func (p *Pipeline) runWeigh(ctx context.Context, batchID string, items []Item) ([]domain.WeightedInput, []float64) {
	start := time.Now()
	_, span := p.tracer.Start(ctx, "pipeline.weigh")
	defer span.End()

	weighted := make([]domain.WeightedInput, 0, len(items))
	weights := make([]float64, 0, len(items))
	for _, item := range items {
		wi := p.weight.Assign(item.Content, item.Source, item.Contradiction)
		weighted = append(weighted, wi)
		weights = append(weights, wi.Tension)
	}

	telemetry.RecordStageMetrics(ctx, telemetry.StageMetrics{
		BatchID: batchID, Stage: "weigh", Outcome: telemetry.OutcomeOK, Duration: time.Since(start),
	})
	return weighted, weights
}

func (p *Pipeline) runStage(ctx context.Context, batchID, stage string, fn func() []domain.Pattern) []domain.Pattern {
	start := time.Now()
	_, span := p.tracer.Start(ctx, "pipeline."+stage)
	defer span.End()

	out := fn()

	telemetry.RecordStageMetrics(ctx, telemetry.StageMetrics{
		BatchID: batchID, Stage: stage, Outcome: telemetry.OutcomeOK, Duration: time.Since(start),
	})
	return out
}

func (p *Pipeline) runMemory(ctx context.Context, batchID string, patterns []domain.Pattern) {
	start := time.Now()
	_, span := p.tracer.Start(ctx, "pipeline.memory")
	defer span.End()

	ids := make([]int, len(patterns))
	for i, pat := range patterns {
		ids[i] = p.lattice.Insert(pat, pat.AverageTension)
	}
	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			if sharesVocabulary(patterns[i], patterns[j]) {
				p.lattice.Connect(ids[i], ids[j])
			}
		}
	}
	p.mu.RLock()
	iterations := p.resonanceIterations
	bleed := p.bleedThreshold
	p.mu.RUnlock()
	p.lattice.Resonance(iterations)
	p.lattice.Bleed(bleed)

	telemetry.RecordStageMetrics(ctx, telemetry.StageMetrics{
		BatchID: batchID, Stage: "memory", Outcome: telemetry.OutcomeOK, Duration: time.Since(start),
	})
}

// Snapshot is a point-in-time view of the engine for status reporting.
type Snapshot struct {
	Lattice    domain.LatticeSnapshot `json:"lattice"`
	Breaker    string                 `json:"breaker"`
	Baseline   domain.Fingerprint     `json:"baseline"`
	PriorAlpha float64                `json:"prior_alpha"`
	PriorBeta  float64                `json:"prior_beta"`
	CoreValues domain.CoreValues      `json:"core_values"`
	DriftLimit float64                `json:"drift_limit"`
}

// Snapshot reports the current engine state.
func (p *Pipeline) Snapshot() Snapshot {
	alpha, beta := p.weight.Priors()
	return Snapshot{
		Lattice:    p.lattice.Snapshot(),
		Breaker:    string(p.breaker.State()),
		Baseline:   p.watcher.Baseline(),
		PriorAlpha: alpha,
		PriorBeta:  beta,
		CoreValues: p.integrity.Values(),
		DriftLimit: p.watcher.DriftThreshold(),
	}
}

// CurrentFingerprint computes a fingerprint over the trailing weight window
// (the same window batch processing fingerprints) without running a batch.
// A positive n overrides the window size.
func (p *Pipeline) CurrentFingerprint(n int) domain.Fingerprint {
	if n <= 0 {
		n = fingerprintWindow
	}
	return p.computer.Compute(p.recentWeights(n))
}

// recentWeights returns the tensions of up to n most recent weighted inputs.
func (p *Pipeline) recentWeights(n int) []float64 {
	recent := p.weight.LastN(n)
	weights := make([]float64, len(recent))
	for i, wi := range recent {
		weights[i] = wi.Tension
	}
	return weights
}

// RotateBaseline pins the named vault fingerprint as the new watcher
// baseline. Callers must hold quorum approval.
func (p *Pipeline) RotateBaseline(ctx context.Context, name string) error {
	fp, err := p.vault.GetBaseline(ctx, name)
	if err != nil {
		return err
	}
	p.watcher.SetBaseline(fp)
	p.logger.Info().Str("baseline", name).Msg("baseline rotated")
	return nil
}

// PinBaseline stores the current fingerprint in the vault under the given
// name.
func (p *Pipeline) PinBaseline(ctx context.Context, name string, fp domain.Fingerprint) error {
	return p.vault.PutBaseline(ctx, name, fp)
}

// UpdateValues replaces the integrity chamber's core values. Callers must
// hold quorum approval.
func (p *Pipeline) UpdateValues(values domain.CoreValues) {
	p.integrity.SetValues(values)
	p.logger.Info().
		Float64("max_tension", values.MaxTension).
		Float64("max_debt", values.MaxDebt).
		Msg("core values updated")
}

// ApplyConfig folds a reloaded configuration into the running pipeline.
// Only hot-reloadable settings are applied; structural settings (addresses,
// telemetry endpoints) require a restart.
func (p *Pipeline) ApplyConfig(cfg *config.Config) {
	p.integrity.SetValues(cfg.Chambers.Values)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bleedThreshold = cfg.Lattice.BleedThreshold
	if cfg.Lattice.ResonanceIterations > 0 {
		p.resonanceIterations = cfg.Lattice.ResonanceIterations
	}
}

// Store exposes the batch store for read paths.
func (p *Pipeline) Store() storage.BatchStore {
	return p.store
}

// sharesVocabulary reports whether two patterns have any token overlap in
// their member contents.
func sharesVocabulary(a, b domain.Pattern) bool {
	seen := make(map[string]struct{})
	for _, m := range a.Members {
		for _, tok := range tokens(m.Content) {
			seen[tok] = struct{}{}
		}
	}
	for _, m := range b.Members {
		for _, tok := range tokens(m.Content) {
			if _, ok := seen[tok]; ok {
				return true
			}
		}
	}
	return false
}
