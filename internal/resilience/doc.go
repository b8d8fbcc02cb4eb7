// Package resilience provides the failure-isolation primitives used by the
// execution engine: retry with configurable backoff and jitter, a circuit
// breaker state machine, and a bounded dead-letter queue for permanently
// failed work items.
package resilience
