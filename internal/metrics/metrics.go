package metrics

import (
	"time"
)

// MetricsCollector receives operational measurements from the ledger, the
// HTTP layer, the read caches and the support agent. Implementations export
// them to a backend.
type MetricsCollector interface {
	// Ledger
	RecordLedgerOp(op string, outcome string, duration time.Duration)
	RecordStalePending(count int)

	// HTTP
	RecordHTTPRequest(method, route string, status int, duration time.Duration)

	// Read caches
	RecordCacheGet(cache string, hit bool)

	// Agent
	RecordChatCall(success bool, duration time.Duration)
	RecordToolCall(tool string, success bool)
	RecordCircuitState(name string, state CircuitState)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Outcome labels used with RecordLedgerOp.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// NoOpCollector discards everything. It is the default when no collector is wired.
type NoOpCollector struct{}

func (NoOpCollector) RecordLedgerOp(op string, outcome string, duration time.Duration) {}

func (NoOpCollector) RecordStalePending(count int) {}

func (NoOpCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {}

func (NoOpCollector) RecordCacheGet(cache string, hit bool) {}

func (NoOpCollector) RecordChatCall(success bool, duration time.Duration) {}

func (NoOpCollector) RecordToolCall(tool string, success bool) {}

func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
