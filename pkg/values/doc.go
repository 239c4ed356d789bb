// Package values integrates the Open Policy Agent (OPA) engine with the
// Solace integrity chamber, evaluating Rego value policies over candidate
// patterns.
//
// The package owns Rego module parsing and prepared-query lifecycle, wraps
// evaluation results in domain-friendly decisions, and keeps a bounded LRU
// decision cache. It is intentionally decoupled from HTTP concerns so value
// policies can be simulated, tested, and hot-reloaded independently of the
// pipeline.
package values
