package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-ai/solace/pkg/domain"
)

func TestBatchStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBatchStore()

	result := domain.BatchResult{BatchID: "batch-1", EpistemicDebt: 0.4, ProcessedAt: time.Now()}
	require.NoError(t, store.SaveBatch(ctx, result))

	got, err := store.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, result.BatchID, got.BatchID)
	assert.InDelta(t, 0.4, got.EpistemicDebt, 1e-9)

	require.NoError(t, store.Close())
}

func TestBatchStoreNotFound(t *testing.T) {
	store := NewMemoryBatchStore()
	_, err := store.GetBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrBatchNotFound)
}

func TestRecentBatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBatchStore()

	base := time.Now()
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, store.SaveBatch(ctx, domain.BatchResult{
			BatchID:     id,
			ProcessedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := store.RecentBatches(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].BatchID)
	assert.Equal(t, "second", recent[1].BatchID)

	all, err := store.RecentBatches(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveBatchOverwriteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBatchStore()

	require.NoError(t, store.SaveBatch(ctx, domain.BatchResult{BatchID: "b", ProcessedAt: time.Now()}))
	require.NoError(t, store.SaveBatch(ctx, domain.BatchResult{BatchID: "b", EpistemicDebt: 1.0, ProcessedAt: time.Now()}))

	all, err := store.RecentBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 1.0, all[0].EpistemicDebt, 1e-9)
}

func TestBaselineVaultRoundTrip(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryBaselineVault()

	fp := domain.Fingerprint{WeightMerkleRoot: "abc", EntropyBeacon: 1.0}
	require.NoError(t, vault.PutBaseline(ctx, DefaultBaseline, fp))

	got, err := vault.GetBaseline(ctx, DefaultBaseline)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.WeightMerkleRoot)

	names, err := vault.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultBaseline}, names)
}

func TestBaselineVaultMissing(t *testing.T) {
	vault := NewMemoryBaselineVault()
	_, err := vault.GetBaseline(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrBaselineMissing)
}
