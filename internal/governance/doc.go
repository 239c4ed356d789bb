// Package governance coordinates runtime safety controls for the Solace
// engine: the drift breaker that freezes processing after repeated E-PASA
// non-compliance, the tri-class quorum that gates constitutional mutations
// (baseline rotation, core-value changes), and ingest rate limiting.
//
// The pipeline depends on these primitives to protect the engine's ethical
// envelope without introducing extra infrastructure coupling.
package governance
