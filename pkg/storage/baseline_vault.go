package storage

import (
	"context"
	"sync"

	"github.com/solace-ai/solace/pkg/domain"
)

// DefaultBaseline is the name of the baseline the watcher pins at startup.
const DefaultBaseline = "default"

// BaselineVault manages named baseline fingerprints. Rotation is
// governance-gated; the vault itself only stores.
type BaselineVault interface {
	// PutBaseline stores a fingerprint under the given name.
	PutBaseline(ctx context.Context, name string, fp domain.Fingerprint) error
	// GetBaseline retrieves a fingerprint by name.
	GetBaseline(ctx context.Context, name string) (domain.Fingerprint, error)
	// Names lists stored baseline names.
	Names(ctx context.Context) ([]string, error)
}

// MemoryBaselineVault is an in-memory implementation of BaselineVault.
type MemoryBaselineVault struct {
	mu        sync.RWMutex
	baselines map[string]domain.Fingerprint
}

// NewMemoryBaselineVault creates a new MemoryBaselineVault.
func NewMemoryBaselineVault() *MemoryBaselineVault {
	return &MemoryBaselineVault{
		baselines: make(map[string]domain.Fingerprint),
	}
}

// PutBaseline stores a baseline fingerprint.
func (v *MemoryBaselineVault) PutBaseline(_ context.Context, name string, fp domain.Fingerprint) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.baselines[name] = fp
	return nil
}

// GetBaseline retrieves a baseline fingerprint.
func (v *MemoryBaselineVault) GetBaseline(_ context.Context, name string) (domain.Fingerprint, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	fp, ok := v.baselines[name]
	if !ok {
		return domain.Fingerprint{}, domain.ErrBaselineMissing
	}
	return fp, nil
}

// Names lists stored baseline names.
func (v *MemoryBaselineVault) Names(_ context.Context) ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.baselines))
	for name := range v.baselines {
		names = append(names, name)
	}
	return names, nil
}
