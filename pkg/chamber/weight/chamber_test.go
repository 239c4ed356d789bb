package weight

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newDeterministic(opts ...Option) *Chamber {
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	return New(opts...)
}

func TestAssignFirstInputUsesNeutralBase(t *testing.T) {
	c := newDeterministic()

	wi := c.Assign("the sky is blue", "sensor-1", nil)

	// With no history the contradiction estimate is 0.5; the blend with a
	// Beta sample stays strictly inside (0, 1).
	assert.Greater(t, wi.Tension, 0.0)
	assert.Less(t, wi.Tension, 1.0)
	assert.Equal(t, wi.Tension, wi.EpistemicDebt)
	assert.Equal(t, "sensor-1", wi.Source)
	assert.False(t, wi.WeighedAt.IsZero())
}

func TestAssignExplicitMetricOverridesEstimate(t *testing.T) {
	c := newDeterministic()
	c.Assign("the sky is blue", "s", nil)

	// An out-of-range metric is clamped before blending, so the resulting
	// tension is at least half of the clamped value.
	high := 5.0
	wi := c.Assign("the sky is blue", "s", &high)
	assert.GreaterOrEqual(t, wi.Tension, 0.5)
	assert.LessOrEqual(t, wi.Tension, 1.0)

	zero := 0.0
	wi = c.Assign("the sky is blue", "s", &zero)
	assert.LessOrEqual(t, wi.Tension, 0.5)
}

func TestAssignContradictoryInputScoresHigher(t *testing.T) {
	c := newDeterministic()
	for i := 0; i < 5; i++ {
		c.Assign("the sky is blue today", "s", nil)
	}

	// Pin the prior sample's influence by comparing the same chamber state
	// against a repeated versus a disjoint input.
	same := c.Assign("the sky is blue today", "s", nil)
	novel := c.Assign("quarterly revenue dropped sharply", "s", nil)

	assert.Greater(t, novel.Tension, same.Tension,
		"contradictory input should be weighted up, not filtered out")
}

func TestUpdateShiftsPriors(t *testing.T) {
	c := newDeterministic()

	c.Update(true, 2.0)
	alpha, beta := c.Priors()
	assert.InDelta(t, 4.0, alpha, 1e-9)
	assert.InDelta(t, 2.0, beta, 1e-9)

	c.Update(false, 0) // non-positive amount defaults to 1
	alpha, beta = c.Priors()
	assert.InDelta(t, 4.0, alpha, 1e-9)
	assert.InDelta(t, 3.0, beta, 1e-9)
}

func TestWithPriorsOverride(t *testing.T) {
	c := newDeterministic(WithPriors(5, 1))
	alpha, beta := c.Priors()
	assert.InDelta(t, 5.0, alpha, 1e-9)
	assert.InDelta(t, 1.0, beta, 1e-9)

	// Non-positive values keep the defaults.
	c = newDeterministic(WithPriors(-1, 0))
	alpha, beta = c.Priors()
	assert.InDelta(t, 2.0, alpha, 1e-9)
	assert.InDelta(t, 2.0, beta, 1e-9)
}

func TestLastNReturnsMostRecentOldestFirst(t *testing.T) {
	c := newDeterministic()
	c.Assign("one", "s", nil)
	c.Assign("two", "s", nil)
	c.Assign("three", "s", nil)

	recent := c.LastN(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Content)
	assert.Equal(t, "three", recent[1].Content)

	all := c.LastN(0)
	assert.Len(t, all, 3)
}

// Property: tension is always in [0, 1] regardless of input content, history
// length, or explicit contradiction metric.
func TestTensionBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New(WithRand(rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))))

		numItems := rapid.IntRange(1, 30).Draw(t, "num_items")
		for i := 0; i < numItems; i++ {
			content := rapid.StringMatching(`[a-z ]{0,40}`).Draw(t, "content")
			var metric *float64
			if rapid.Bool().Draw(t, "has_metric") {
				m := rapid.Float64Range(-2, 3).Draw(t, "metric")
				metric = &m
			}
			wi := c.Assign(content, "src", metric)
			if wi.Tension < 0 || wi.Tension > 1 {
				t.Fatalf("tension %v out of [0, 1]", wi.Tension)
			}
			if wi.EpistemicDebt != wi.Tension {
				t.Fatalf("initial debt %v must equal tension %v", wi.EpistemicDebt, wi.Tension)
			}
		}
	})
}

func TestJaccardDistance(t *testing.T) {
	a := tokenize("the sky is blue")
	b := tokenize("the sky is blue")
	assert.InDelta(t, 0.0, jaccardDistance(a, b), 1e-9)

	c := tokenize("completely unrelated words")
	assert.InDelta(t, 1.0, jaccardDistance(a, c), 1e-9)

	// Empty sets are identical.
	assert.InDelta(t, 0.0, jaccardDistance(tokenize(""), tokenize("")), 1e-9)
}
