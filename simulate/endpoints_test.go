package simulate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dotbot/transfer-lib/common/types"
)

func TestOrderEndpoints(t *testing.T) {
	now := time.Now()

	a := types.Endpoint{URL: "wss://a", Healthy: true, Active: true}
	b := types.Endpoint{URL: "wss://b", Healthy: true}
	c := types.Endpoint{URL: "wss://c", Healthy: false, FailureCount: 1, LastFailureAt: now.Add(-time.Second)}
	d := types.Endpoint{URL: "wss://d", Healthy: false, FailureCount: 3, LastFailureAt: now.Add(-10 * time.Minute)}

	ordered := OrderEndpoints([]types.Endpoint{a, b, c, d}, now)

	assert.Equal(t, []string{"wss://a", "wss://b", "wss://d"}, EndpointURLs(ordered))
}

func TestOrderEndpointsHealthyByFailureCount(t *testing.T) {
	now := time.Now()

	flaky := types.Endpoint{URL: "wss://flaky", Healthy: true, FailureCount: 5, LastFailureAt: now.Add(-time.Hour)}
	shaky := types.Endpoint{URL: "wss://shaky", Healthy: true, FailureCount: 1, LastFailureAt: now.Add(-time.Hour)}
	clean := types.Endpoint{URL: "wss://clean", Healthy: true}

	ordered := OrderEndpoints([]types.Endpoint{flaky, shaky, clean}, now)

	assert.Equal(t, []string{"wss://clean", "wss://shaky", "wss://flaky"}, EndpointURLs(ordered))
}

func TestOrderEndpointsExcludesRecentFailures(t *testing.T) {
	now := time.Now()

	recent := types.Endpoint{URL: "wss://recent", Healthy: false, LastFailureAt: now.Add(-time.Minute)}
	stale := types.Endpoint{URL: "wss://stale", Healthy: false, LastFailureAt: now.Add(-failureCooldown)}
	neverChecked := types.Endpoint{URL: "wss://never", Healthy: false}

	ordered := OrderEndpoints([]types.Endpoint{recent, stale, neverChecked}, now)

	// Only the endpoint whose failure aged past the cooldown survives; an
	// unhealthy endpoint with no recorded failure stays excluded.
	assert.Equal(t, []string{"wss://stale"}, EndpointURLs(ordered))
}

func TestOrderEndpointsEmpty(t *testing.T) {
	assert.Empty(t, OrderEndpoints(nil, time.Now()))
}
