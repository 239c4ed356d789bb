// Package chamber groups the three Solace reasoning chambers.
//
// Weight assigns contradiction tension to raw inputs, Pattern clusters
// weighted inputs into coexisting hypotheses, and Integrity gates patterns
// against core values. Each chamber lives in its own subpackage and is
// composed by pkg/engine.
package chamber
