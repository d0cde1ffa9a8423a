// Package metadata carries the caller-supplied request context that travels
// unchanged from the HTTP boundary into the broker envelope.
package metadata

// Header names used by the HTTP boundary to populate Metadata.
const (
	HeaderCorrelationID = "X-Correlation-Id"
	HeaderRequestID     = "X-Request-Id"
)

// Metadata describes one inbound request. CorrelationID is required and is
// trusted to be non-empty by everything downstream of the boundary.
type Metadata struct {
	Version       int    `json:"version"`
	CorrelationID string `json:"correlationId"`
	RequestID     string `json:"requestId"`
}
