// Package epasa implements the Ethical Process Assurance & Safety
// Architecture: fingerprinting of the engine's internal state and a watcher
// that measures drift against a pinned baseline.
package epasa

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/solace-ai/solace/pkg/domain"
)

// DefaultEthicalSeed is hashed to derive the ethical embedding vector when no
// explicit seed is configured.
const DefaultEthicalSeed = "ethics_and_values"

// rhythmBuckets is the histogram resolution for the behavioral rhythm vector.
const rhythmBuckets = 8

// Component identifies one engine component contributing to the
// architectural hash. Go cannot hash its own source the way a dynamic
// runtime can, so the manifest pins explicit name/version pairs instead.
type Component struct {
	Name    string
	Version string
}

// DefaultManifest lists the core engine components.
func DefaultManifest() []Component {
	return []Component{
		{Name: "chamber/weight", Version: "v1"},
		{Name: "chamber/pattern", Version: "v1"},
		{Name: "chamber/integrity", Version: "v1"},
		{Name: "lattice", Version: "v1"},
	}
}

// Computer derives fingerprints from batch weight values.
type Computer struct {
	manifest []Component
	seed     string
	archHash string
}

// NewComputer creates a fingerprint computer for the given component
// manifest. A nil manifest selects the default; an empty seed selects
// DefaultEthicalSeed. The architectural hash is fixed at construction.
func NewComputer(manifest []Component, seed string) *Computer {
	if manifest == nil {
		manifest = DefaultManifest()
	}
	if seed == "" {
		seed = DefaultEthicalSeed
	}
	return &Computer{
		manifest: manifest,
		seed:     seed,
		archHash: ArchitecturalHash(manifest),
	}
}

// Compute builds the full fingerprint for one batch of weight values.
func (c *Computer) Compute(weights []float64) domain.Fingerprint {
	rhythm := RhythmHistogram(weights)
	return domain.Fingerprint{
		ArchitecturalHash: c.archHash,
		WeightMerkleRoot:  MerkleRoot(weights),
		EthicalVector:     EthicalVector(c.seed),
		BehavioralRhythm:  rhythm,
		EntropyBeacon:     EntropyBeacon(rhythm),
		CapturedAt:        time.Now().UTC(),
	}
}

// ArchitecturalHash digests the component manifest, sorted by name so the
// hash is order-independent.
func ArchitecturalHash(manifest []Component) string {
	parts := make([]string, len(manifest))
	for i, comp := range manifest {
		parts[i] = comp.Name + "@" + comp.Version
	}
	sort.Strings(parts)
	return hashString(strings.Join(parts, "\n"))
}

// MerkleRoot computes a SHA-256 Merkle root over the weight values. Each
// weight is formatted at 12 decimal places and hashed into a leaf; levels
// with an odd leaf count duplicate the last leaf. Empty input hashes the
// literal "[]".
func MerkleRoot(weights []float64) string {
	if len(weights) == 0 {
		return hashString("[]")
	}
	leaves := make([]string, len(weights))
	for i, w := range weights {
		leaves[i] = hashString(fmt.Sprintf("%.12f", w))
	}
	for len(leaves) > 1 {
		if len(leaves)%2 == 1 {
			leaves = append(leaves, leaves[len(leaves)-1])
		}
		next := make([]string, 0, len(leaves)/2)
		for i := 0; i < len(leaves); i += 2 {
			next = append(next, hashString(leaves[i]+leaves[i+1]))
		}
		leaves = next
	}
	return leaves[0]
}

// EthicalVector derives a deterministic 4-float embedding from the seed:
// SHA-256 of the seed, split into four 8-hex-char chunks, each scaled into
// [0, 1].
func EthicalVector(seed string) []float64 {
	digest := hashString(seed)
	out := make([]float64, 0, 4)
	for i := 0; i < 32; i += 8 {
		var v uint64
		fmt.Sscanf(digest[i:i+8], "%x", &v)
		out = append(out, float64(v)/float64(0xFFFFFFFF))
	}
	return out
}

// RhythmHistogram buckets the weight values into a normalized histogram over
// [0, 1]. Empty input returns a zero histogram.
func RhythmHistogram(weights []float64) []float64 {
	hist := make([]float64, rhythmBuckets)
	if len(weights) == 0 {
		return hist
	}
	for _, w := range weights {
		if w < 0 {
			w = 0
		}
		if w > 1 {
			w = 1
		}
		idx := int(w * rhythmBuckets)
		if idx == rhythmBuckets {
			idx--
		}
		hist[idx]++
	}
	for i := range hist {
		hist[i] /= float64(len(weights))
	}
	return hist
}

// EntropyBeacon is the Shannon entropy of the rhythm histogram, normalized
// by the maximum possible entropy. A zero histogram (no activity) reports
// full diversity 1.0 so an idle system never trips the drift alarm.
func EntropyBeacon(hist []float64) float64 {
	var total float64
	for _, p := range hist {
		total += p
	}
	if total == 0 {
		return 1.0
	}
	var entropy float64
	for _, p := range hist {
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy / math.Log2(float64(len(hist)))
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
