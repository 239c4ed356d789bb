// Package storage provides in-memory stores for batch results and baseline
// fingerprints.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/solace-ai/solace/pkg/domain"
)

// BatchStore persists pipeline batch results.
type BatchStore interface {
	// SaveBatch stores one batch result.
	SaveBatch(ctx context.Context, result domain.BatchResult) error
	// GetBatch retrieves a batch result by ID.
	GetBatch(ctx context.Context, id string) (domain.BatchResult, error)
	// RecentBatches returns up to n most recent batch results, newest first.
	RecentBatches(ctx context.Context, n int) ([]domain.BatchResult, error)
	// Close releases store resources.
	Close() error
}

// MemoryBatchStore is an in-memory implementation of BatchStore.
type MemoryBatchStore struct {
	mu      sync.RWMutex
	batches map[string]domain.BatchResult
	order   []string
}

// NewMemoryBatchStore creates a new MemoryBatchStore.
func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{
		batches: make(map[string]domain.BatchResult),
	}
}

// SaveBatch stores a batch result in memory.
func (s *MemoryBatchStore) SaveBatch(_ context.Context, result domain.BatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.batches[result.BatchID]; !exists {
		s.order = append(s.order, result.BatchID)
	}
	s.batches[result.BatchID] = result
	return nil
}

// GetBatch retrieves a batch result from memory.
func (s *MemoryBatchStore) GetBatch(_ context.Context, id string) (domain.BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.batches[id]
	if !ok {
		return domain.BatchResult{}, domain.ErrBatchNotFound
	}
	return result, nil
}

// RecentBatches returns up to n most recent batches, newest first.
func (s *MemoryBatchStore) RecentBatches(_ context.Context, n int) ([]domain.BatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]domain.BatchResult, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.batches[s.order[i]])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ProcessedAt.After(out[j].ProcessedAt)
	})
	return out, nil
}

// Close is a no-op for memory store.
func (s *MemoryBatchStore) Close() error {
	return nil
}
