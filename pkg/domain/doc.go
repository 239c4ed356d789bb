// Package domain defines the core business types for the Solace reasoning
// engine.
//
// This package contains pure domain logic with ZERO external dependencies
// outside the Go standard library (plus uuid for identities). All types in
// this package are:
//
// - Independent of infrastructure (no HTTP, storage, or telemetry coupling)
// - Testable in isolation without mocks
// - Stable and unlikely to change frequently
//
// Other packages (chamber, lattice, epasa, engine, governance) implement
// behaviour over these types and depend on them. The dependency direction is
// always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
