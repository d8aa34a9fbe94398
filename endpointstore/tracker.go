package endpointstore

import (
	"context"
	"sync"
	"time"

	"github.com/dotbot/transfer-lib/common/types"
)

// Tracker is the in-memory endpoint health tracker. It implements
// types.EndpointProvider; the simulator treats it as a read-only collaborator
// while the monitor and executioner report observations into it.
type Tracker struct {
	mu        sync.RWMutex
	endpoints map[string][]types.Endpoint
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{endpoints: make(map[string][]types.Endpoint)}
}

// SetEndpoints replaces the tracked endpoint set for a chain. Previously
// recorded health state is discarded.
func (t *Tracker) SetEndpoints(chain string, endpoints []types.Endpoint) {
	copied := make([]types.Endpoint, len(endpoints))
	copy(copied, endpoints)

	t.mu.Lock()
	t.endpoints[chain] = copied
	t.mu.Unlock()
}

// Endpoints returns the current endpoint records for a chain.
func (t *Tracker) Endpoints(ctx context.Context, chain string) ([]types.Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	tracked := t.endpoints[chain]
	out := make([]types.Endpoint, len(tracked))
	copy(out, tracked)
	return out, nil
}

// SetActive flips the active flag on one endpoint.
func (t *Tracker) SetActive(chain, url string, active bool) {
	t.mutate(chain, url, func(endpoint *types.Endpoint) {
		endpoint.Active = active
	})
}

// ReportSuccess marks one endpoint healthy and resets its failure count.
func (t *Tracker) ReportSuccess(chain, url string) {
	t.mutate(chain, url, func(endpoint *types.Endpoint) {
		endpoint.Healthy = true
		endpoint.FailureCount = 0
	})
}

// ReportFailure marks one endpoint unhealthy and records the failure time.
func (t *Tracker) ReportFailure(chain, url string) {
	now := time.Now()
	t.mutate(chain, url, func(endpoint *types.Endpoint) {
		endpoint.Healthy = false
		endpoint.FailureCount++
		endpoint.LastFailureAt = now
	})
}

func (t *Tracker) mutate(chain, url string, apply func(*types.Endpoint)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tracked := t.endpoints[chain]
	for i := range tracked {
		if tracked[i].URL == url {
			apply(&tracked[i])
			return
		}
	}
}
