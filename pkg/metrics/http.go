package metrics

import (
	"time"
)

// Request outcomes reported by the HTTP adapter.
//
// Every connection that reaches the parse step ends in exactly one outcome.
const (
	// OutcomeOK is a 200 response
	OutcomeOK = "ok"

	// OutcomeNotFound is a 404 response
	OutcomeNotFound = "not_found"

	// OutcomeMalformed is a request line that could not be parsed (no response)
	OutcomeMalformed = "malformed"

	// OutcomeUnsupported is a method other than GET (no response)
	OutcomeUnsupported = "unsupported"

	// OutcomeError is a provider or write failure (connection dropped)
	OutcomeError = "error"
)

// HTTPMetrics provides observability for the HTTP adapter.
//
// This interface is optional: if not provided to the adapter, a no-op
// implementation is used.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewHTTPMetrics()
//	adapter := http.New(config, m)
//
//	// Without metrics (no-op)
//	adapter := http.New(config, nil)
type HTTPMetrics interface {
	// RecordRequest records a finished request.
	//
	// Parameters:
	//   - method: Request method as sent ("GET", "POST", ...), or "" if unparsed
	//   - outcome: One of the Outcome* constants
	//   - duration: Time from first byte read to response flushed
	RecordRequest(method string, outcome string, duration time.Duration)

	// RecordBytesSent records response bytes written to a client.
	RecordBytesSent(bytes int64)

	// SetActiveConnections updates the number of connections owned by workers.
	SetActiveConnections(count int32)

	// SetQueueDepth updates the number of accepted connections waiting for a worker.
	SetQueueDepth(depth int)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed at shutdown timeout.
	RecordConnectionForceClosed()

	// RecordAcceptThrottled counts accepts delayed by the rate limiter.
	RecordAcceptThrottled()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

// noopHTTPMetrics is a no-op implementation of HTTPMetrics with zero overhead.
type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(method string, outcome string, duration time.Duration) {}
func (noopHTTPMetrics) RecordBytesSent(bytes int64)                                         {}
func (noopHTTPMetrics) SetActiveConnections(count int32)                                    {}
func (noopHTTPMetrics) SetQueueDepth(depth int)                                             {}
func (noopHTTPMetrics) RecordConnectionAccepted()                                           {}
func (noopHTTPMetrics) RecordConnectionClosed()                                             {}
func (noopHTTPMetrics) RecordConnectionForceClosed()                                        {}
func (noopHTTPMetrics) RecordAcceptThrottled()                                              {}
