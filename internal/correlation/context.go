// Package correlation attaches a correlation/request identifier pair to
// every call into the core and enforces a per-correlation-id rate limit
// ahead of it.
package correlation

import "github.com/google/uuid"

// CorrelationIDHeader and RequestIDHeader are the canonical header names a
// caller-facing transport should read/write; the core itself only deals in
// RequestContext values.
const (
	CorrelationIDHeader = "X-Correlation-Id"
	RequestIDHeader     = "X-Request-Id"
)

// RequestContext is attached to every resulting event and to every error
// for correlation, per the inbound request surface contract.
type RequestContext struct {
	CorrelationID string
	RequestID     string
}

// NewRequestContext builds a RequestContext. If correlationID is empty a
// fresh one is minted, matching a caller who did not supply one.
func NewRequestContext(correlationID string) RequestContext {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return RequestContext{
		CorrelationID: correlationID,
		RequestID:     uuid.NewString(),
	}
}
