// Package weight implements the weight chamber: the first stage of the
// tri-chamber pipeline.
//
// The chamber inverts the usual filtration order. Instead of discarding
// contradictions it prioritises them: data that challenges what the system
// has already seen receives HIGHER tension, encouraging exploration. Tension
// blends a contradiction estimate (average Jaccard distance to prior inputs)
// with a sample from a Beta(alpha, beta) prior, starting at Beta(2, 2) to
// avoid early overconfidence.
package weight

import (
	"math"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/solace-ai/solace/pkg/domain"
)

var tokenRe = regexp.MustCompile(`\w+`)

// Option configures a Chamber.
type Option func(*Chamber)

// WithPriors overrides the initial Beta prior parameters.
func WithPriors(alpha, beta float64) Option {
	return func(c *Chamber) {
		if alpha > 0 {
			c.alpha = alpha
		}
		if beta > 0 {
			c.beta = beta
		}
	}
}

// WithRand injects a deterministic random source, used by tests.
func WithRand(rng *rand.Rand) Option {
	return func(c *Chamber) { c.rng = rng }
}

// Chamber assigns tension scores to incoming items. Safe for concurrent use.
type Chamber struct {
	mu      sync.Mutex
	alpha   float64
	beta    float64
	rng     *rand.Rand
	tokens  []map[string]struct{}
	history []domain.WeightedInput
}

// New creates a weight chamber with a Beta(2, 2) prior.
func New(opts ...Option) *Chamber {
	c := &Chamber{
		alpha: 2.0,
		beta:  2.0,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Assign scores one item and records it in the chamber history. When metric
// is non-nil it replaces the Jaccard contradiction estimate (clamped to
// [0, 1]); either way the estimate is averaged with a Beta prior sample.
// The returned input carries its tension as initial epistemic debt.
func (c *Chamber) Assign(content, source string, metric *float64) domain.WeightedInput {
	c.mu.Lock()
	defer c.mu.Unlock()

	toks := tokenize(content)

	var base float64
	switch {
	case metric != nil:
		base = clamp01(*metric)
	case len(c.tokens) == 0:
		base = 0.5
	default:
		var sum float64
		for _, prev := range c.tokens {
			sum += jaccardDistance(toks, prev)
		}
		base = sum / float64(len(c.tokens))
	}

	tension := clamp01((base + c.betaSample()) / 2.0)

	wi := domain.WeightedInput{
		Content:       content,
		Source:        source,
		Tension:       tension,
		EpistemicDebt: tension,
		WeighedAt:     time.Now().UTC(),
	}
	c.tokens = append(c.tokens, toks)
	c.history = append(c.history, wi)
	return wi
}

// Update shifts the prior as contradictions resolve or persist. Resolution
// grows alpha, persistence grows beta.
func (c *Chamber) Update(resolved bool, amount float64) {
	if amount <= 0 {
		amount = 1.0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if resolved {
		c.alpha += amount
	} else {
		c.beta += amount
	}
}

// Priors returns the current Beta prior parameters.
func (c *Chamber) Priors() (alpha, beta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alpha, c.beta
}

// LastN returns up to n most recent weighted inputs, oldest first.
func (c *Chamber) LastN(n int) []domain.WeightedInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.history) {
		n = len(c.history)
	}
	out := make([]domain.WeightedInput, n)
	copy(out, c.history[len(c.history)-n:])
	return out
}

// betaSample draws from Beta(alpha, beta) using two gamma variates.
// Caller holds the mutex.
func (c *Chamber) betaSample() float64 {
	x := gammaSample(c.rng, c.alpha)
	y := gammaSample(c.rng, c.beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// gammaSample draws from Gamma(shape, 1) via Marsaglia-Tsang squeeze.
func gammaSample(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// Boost to shape+1 and scale back.
		u := rng.Float64()
		return gammaSample(rng, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		x := rng.NormFloat64()
		v := 1.0 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

func tokenize(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		out[tok] = struct{}{}
	}
	return out
}

func jaccardDistance(a, b map[string]struct{}) float64 {
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
		return 0.0
	}
	return 1.0 - float64(inter)/float64(union)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
