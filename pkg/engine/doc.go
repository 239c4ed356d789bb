// Package engine orchestrates the tri-chamber pipeline: weighing raw items,
// clustering them into patterns, gating patterns against core values,
// persisting them into the contradiction lattice, and updating the E-PASA
// watcher with the batch fingerprint.
//
// The pipeline owns no policy of its own; chambers, lattice, watcher, and
// governance controls are injected so each can be tested and hot-reloaded
// independently.
package engine
