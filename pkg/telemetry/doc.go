// Package telemetry wires OpenTelemetry exporters and meters for the Solace
// engine.
//
// It centralises trace provider setup, applies engine-specific resource
// attributes, and records per-stage pipeline metrics so operators can
// correlate integrity decisions and drift alarms with batch behaviour.
package telemetry
