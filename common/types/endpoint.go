package types

import (
	"context"
	"time"
)

// Endpoint is one candidate RPC endpoint with its health metadata. The health
// fields are owned by a connection-health tracker; the pipeline reads them only.
//
// Fields:
// - URL: the endpoint URL.
// - Active: whether this is the currently connected endpoint.
// - Healthy: the last known health state.
// - FailureCount: the number of recorded failures.
// - LastFailureAt: the time of the most recent failure, zero when never failed.
type Endpoint struct {
	URL           string
	Active        bool
	Healthy       bool
	FailureCount  int
	LastFailureAt time.Time
}

// EndpointProvider supplies candidate endpoints with health metadata for a chain.
type EndpointProvider interface {
	// Endpoints returns the known endpoints for the chain, in no particular order.
	Endpoints(ctx context.Context, chain string) ([]Endpoint, error)
}
