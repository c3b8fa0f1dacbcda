// Package observe provides observability primitives for protected operations.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wrap their resilience-protected calls with
// a Middleware and wire its hooks into breaker and retry callbacks.
package observe
