// Package pattern implements the pattern chamber: the second stage of the
// tri-chamber pipeline.
//
// The chamber groups weighted inputs into similarity clusters (connected
// components over a Jaccard similarity graph). It never collapses
// contradictions: divergent patterns coexist and travel downstream together.
package pattern

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/solace-ai/solace/pkg/domain"
)

var tokenRe = regexp.MustCompile(`\w+`)

// DefaultThreshold is the minimum Jaccard similarity for two inputs to be
// considered connected.
const DefaultThreshold = 0.3

// Chamber clusters weighted inputs into patterns. Safe for concurrent use.
type Chamber struct {
	mu        sync.Mutex
	threshold float64
	built     []domain.Pattern
}

// New creates a pattern chamber. A non-positive threshold selects the default.
func New(threshold float64) *Chamber {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Chamber{threshold: threshold}
}

// Construct clusters the inputs into patterns. Two inputs are connected when
// the Jaccard similarity of their token sets meets the threshold; each
// connected component becomes one pattern with its average tension and total
// epistemic debt. Empty input yields no patterns.
func (c *Chamber) Construct(inputs []domain.WeightedInput) []domain.Pattern {
	n := len(inputs)
	if n == 0 {
		return nil
	}

	toks := make([]map[string]struct{}, n)
	for i, wi := range inputs {
		toks[i] = tokenize(wi.Content)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	visited := make([]bool, n)
	var patterns []domain.Pattern
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		queue := []int{i}
		visited[i] = true
		var cluster []int
		for len(queue) > 0 {
			j := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			cluster = append(cluster, j)
			for k := 0; k < n; k++ {
				if !visited[k] && similarity(toks[j], toks[k]) >= c.threshold {
					visited[k] = true
					queue = append(queue, k)
				}
			}
		}

		members := make([]domain.WeightedInput, len(cluster))
		var tension, debt float64
		for idx, j := range cluster {
			members[idx] = inputs[j]
			tension += inputs[j].Tension
			debt += inputs[j].EpistemicDebt
		}
		patterns = append(patterns, domain.Pattern{
			ID:             domain.NewPatternID(),
			Members:        members,
			AverageTension: tension / float64(len(cluster)),
			TotalDebt:      debt,
			CreatedAt:      time.Now().UTC(),
		})
	}
	c.built = append(c.built, patterns...)
	return patterns
}

// Built returns every pattern the chamber has constructed so far.
func (c *Chamber) Built() []domain.Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Pattern, len(c.built))
	copy(out, c.built)
	return out
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		out[tok] = struct{}{}
	}
	return out
}

// similarity is Jaccard similarity; two empty token sets count as identical.
func similarity(a, b map[string]struct{}) float64 {
	union := len(a)
	inter := 0
	for tok := range b {
		if _, ok := a[tok]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}
