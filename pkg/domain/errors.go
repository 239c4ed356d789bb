package domain

import "errors"

// Common domain errors
var (
	ErrFrozen            = errors.New("processing frozen by drift breaker")
	ErrBaselineMissing   = errors.New("baseline fingerprint not found")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrProposalExpired   = errors.New("proposal expired")
	ErrProposalDecided   = errors.New("proposal already decided")
	ErrQuorumNotMet      = errors.New("quorum not met")
	ErrUnknownVoterClass = errors.New("unknown voter class")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrRateLimited       = errors.New("ingest rate limit exceeded")
)

// ErrorResponse defines the standard JSON error model returned by the HTTP API.
// It avoids exposing internals while providing a stable machine-readable code.
// TraceID should carry the current OpenTelemetry trace identifier when available.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}
