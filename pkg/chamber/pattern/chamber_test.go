package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-ai/solace/pkg/domain"
)

func input(content string, tension float64) domain.WeightedInput {
	return domain.WeightedInput{Content: content, Tension: tension, EpistemicDebt: tension}
}

func TestConstructEmptyInput(t *testing.T) {
	c := New(0)
	assert.Nil(t, c.Construct(nil))
	assert.Empty(t, c.Built())
}

func TestConstructClustersSimilarInputs(t *testing.T) {
	c := New(0)

	patterns := c.Construct([]domain.WeightedInput{
		input("the sky is blue today", 0.2),
		input("the sky is very blue", 0.4),
		input("quarterly revenue dropped sharply", 0.9),
	})

	require.Len(t, patterns, 2)

	var weather, finance domain.Pattern
	for _, p := range patterns {
		if len(p.Members) == 2 {
			weather = p
		} else {
			finance = p
		}
	}

	require.Len(t, weather.Members, 2)
	assert.InDelta(t, 0.3, weather.AverageTension, 1e-9)
	assert.InDelta(t, 0.6, weather.TotalDebt, 1e-9)

	require.Len(t, finance.Members, 1)
	assert.InDelta(t, 0.9, finance.AverageTension, 1e-9)
	assert.NotEqual(t, weather.ID, finance.ID)
	assert.False(t, weather.CreatedAt.IsZero())
}

func TestConstructContradictionsCoexist(t *testing.T) {
	c := New(0)

	// Two statements about the same subject cluster together even when they
	// contradict each other; the chamber never collapses them into one.
	patterns := c.Construct([]domain.WeightedInput{
		input("the reactor is safe", 0.1),
		input("the reactor is not safe", 0.95),
	})

	require.Len(t, patterns, 1)
	assert.Len(t, patterns[0].Members, 2)
	assert.InDelta(t, 1.05, patterns[0].TotalDebt, 1e-9)
}

func TestConstructThresholdSeparates(t *testing.T) {
	// With a strict threshold, partial overlap is no longer enough.
	strict := New(0.99)
	patterns := strict.Construct([]domain.WeightedInput{
		input("the sky is blue today", 0.2),
		input("the sky is very blue", 0.4),
	})
	assert.Len(t, patterns, 2)

	loose := New(0.1)
	patterns = loose.Construct([]domain.WeightedInput{
		input("the sky is blue today", 0.2),
		input("the sky is very blue", 0.4),
	})
	assert.Len(t, patterns, 1)
}

func TestBuiltAccumulatesAcrossBatches(t *testing.T) {
	c := New(0)
	c.Construct([]domain.WeightedInput{input("alpha", 0.5)})
	c.Construct([]domain.WeightedInput{input("omega", 0.5)})

	assert.Len(t, c.Built(), 2)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity(tokenize("a b"), tokenize("b a")), 1e-9)
	assert.InDelta(t, 0.0, similarity(tokenize("a b"), tokenize("c d")), 1e-9)
	assert.InDelta(t, 1.0, similarity(tokenize(""), tokenize("")), 1e-9)
	// |{a,b} ∩ {b,c}| / |{a,b,c}|
	assert.InDelta(t, 1.0/3.0, similarity(tokenize("a b"), tokenize("b c")), 1e-9)
}
