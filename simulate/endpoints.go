package simulate

import (
	"sort"
	"time"

	"github.com/dotbot/transfer-lib/common/types"
)

// failureCooldown is how long an unhealthy endpoint stays excluded after its
// most recent failure.
const failureCooldown = 5 * time.Minute

// OrderEndpoints orders candidate endpoints for fork creation: the currently
// active endpoint first, then healthy endpoints that never failed, then healthy
// endpoints by ascending failure count, then endpoints whose last failure is
// older than the cooldown window. Unhealthy endpoints that failed recently are
// excluded entirely.
//
// Parameters:
// - endpoints: the candidate endpoints with health metadata.
// - now: the reference time for the cooldown window.
//
// Returns:
// - []types.Endpoint: the usable endpoints in preference order.
func OrderEndpoints(endpoints []types.Endpoint, now time.Time) []types.Endpoint {
	type ranked struct {
		endpoint types.Endpoint
		bucket   int
	}

	var usable []ranked
	for _, endpoint := range endpoints {
		switch {
		case endpoint.Active && endpoint.Healthy:
			usable = append(usable, ranked{endpoint, 0})
		case endpoint.Healthy && endpoint.FailureCount == 0:
			usable = append(usable, ranked{endpoint, 1})
		case endpoint.Healthy:
			usable = append(usable, ranked{endpoint, 2})
		case !endpoint.LastFailureAt.IsZero() && now.Sub(endpoint.LastFailureAt) >= failureCooldown:
			usable = append(usable, ranked{endpoint, 3})
		}
	}

	sort.SliceStable(usable, func(i, j int) bool {
		if usable[i].bucket != usable[j].bucket {
			return usable[i].bucket < usable[j].bucket
		}
		return usable[i].endpoint.FailureCount < usable[j].endpoint.FailureCount
	})

	out := make([]types.Endpoint, len(usable))
	for i, r := range usable {
		out[i] = r.endpoint
	}
	return out
}

// EndpointURLs projects ordered endpoints onto their URLs.
func EndpointURLs(endpoints []types.Endpoint) []string {
	urls := make([]string, len(endpoints))
	for i, endpoint := range endpoints {
		urls[i] = endpoint.URL
	}
	return urls
}
