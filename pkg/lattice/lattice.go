// Package lattice implements the contradiction lattice: Solace's graph
// memory for patterns and their unresolved tension.
//
// The lattice preserves contradictions instead of discarding them. Nodes
// carry a pattern and its tension; edges connect related patterns. Resonance
// averages tension across neighborhoods, and bleeding removes nodes whose
// tension has decayed below a floor. The lattice's epistemic debt, the sum
// of all node tensions, is kept consistent across every operation.
package lattice

import (
	"sync"

	"github.com/solace-ai/solace/pkg/domain"
)

// Node is one lattice entry.
type Node struct {
	ID      int
	Pattern domain.Pattern
	Tension float64
	// Neighbors holds adjacent node IDs, insertion order.
	Neighbors []int
}

// Lattice is a concurrency-safe contradiction lattice. Node IDs are never
// reused; bleeding leaves gaps.
type Lattice struct {
	mu     sync.RWMutex
	nodes  map[int]*Node
	nextID int
	debt   float64
}

// New creates an empty lattice.
func New() *Lattice {
	return &Lattice{nodes: make(map[int]*Node)}
}

// Insert adds a pattern with the given tension and returns its node ID.
func (l *Lattice) Insert(p domain.Pattern, tension float64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.nodes[id] = &Node{ID: id, Pattern: p, Tension: tension}
	l.debt += tension
	return id
}

// Connect links two nodes bidirectionally. Unknown IDs and duplicate edges
// are no-ops.
func (l *Lattice) Connect(a, b int) {
	if a == b {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	na, okA := l.nodes[a]
	nb, okB := l.nodes[b]
	if !okA || !okB || contains(na.Neighbors, b) {
		return
	}
	na.Neighbors = append(na.Neighbors, b)
	nb.Neighbors = append(nb.Neighbors, a)
}

// UpdateTension sets a node's tension, adjusting epistemic debt by the
// difference. Unknown IDs are a no-op.
func (l *Lattice) UpdateTension(id int, tension float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	node, ok := l.nodes[id]
	if !ok {
		return
	}
	l.debt += tension - node.Tension
	node.Tension = tension
}

// Resonance propagates tension through the lattice. Each iteration replaces
// every node's tension with the mean of itself and its neighbors, then
// recomputes epistemic debt from scratch.
func (l *Lattice) Resonance(iterations int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < iterations; i++ {
		next := make(map[int]float64, len(l.nodes))
		for id, node := range l.nodes {
			if len(node.Neighbors) == 0 {
				next[id] = node.Tension
				continue
			}
			total := node.Tension
			for _, nid := range node.Neighbors {
				total += l.nodes[nid].Tension
			}
			next[id] = total / float64(len(node.Neighbors)+1)
		}
		l.debt = 0
		for id, tension := range next {
			l.nodes[id].Tension = tension
			l.debt += tension
		}
	}
}

// Bleed removes every node with tension below the threshold, unlinking it
// from its neighbors and reclaiming its debt. Returns the number of nodes
// removed.
func (l *Lattice) Bleed(threshold float64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var doomed []int
	for id, node := range l.nodes {
		if node.Tension < threshold {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		node := l.nodes[id]
		l.debt -= node.Tension
		for _, nid := range node.Neighbors {
			if neighbor, ok := l.nodes[nid]; ok {
				neighbor.Neighbors = remove(neighbor.Neighbors, id)
			}
		}
		delete(l.nodes, id)
	}
	return len(doomed)
}

// Debt returns the total unresolved tension held in memory.
func (l *Lattice) Debt() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.debt
}

// Len returns the number of nodes.
func (l *Lattice) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.nodes)
}

// Node returns a copy of the node with the given ID.
func (l *Lattice) Node(id int) (Node, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	node, ok := l.nodes[id]
	if !ok {
		return Node{}, false
	}
	out := *node
	out.Neighbors = append([]int(nil), node.Neighbors...)
	return out, true
}

// Snapshot summarises the lattice for status reporting.
func (l *Lattice) Snapshot() domain.LatticeSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	edges := 0
	for _, node := range l.nodes {
		edges += len(node.Neighbors)
	}
	return domain.LatticeSnapshot{
		Nodes:         len(l.nodes),
		Edges:         edges / 2,
		EpistemicDebt: l.debt,
	}
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func remove(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
