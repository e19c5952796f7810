package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterCheck("ok", func(ctx context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusHealthy}
	})

	results := hc.CheckHealth(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, HealthStatusHealthy, hc.GetOverallStatus(results))
}

func TestHealthChecker_DegradedCheckDegradesOverallStatus(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterCheck("trading_halt", func(ctx context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusDegraded, Message: "trading halted"}
	})
	hc.RegisterCheck("other", func(ctx context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusHealthy}
	})

	results := hc.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, hc.GetOverallStatus(results))
}

func TestHealthChecker_UnhealthyOutranksDegraded(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterCheck("a", func(ctx context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusDegraded}
	})
	hc.RegisterCheck("b", func(ctx context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusUnhealthy}
	})

	results := hc.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, hc.GetOverallStatus(results))
}

func TestHealthChecker_UnregisterRemovesCheck(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterCheck("temp", func(ctx context.Context) HealthCheckResult {
		return HealthCheckResult{Status: HealthStatusHealthy}
	})
	hc.UnregisterCheck("temp")

	results := hc.CheckHealth(context.Background())
	assert.Len(t, results, 0)
}

func TestHealthChecker_PanickingCheckIsRecovered(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterCheck("boom", func(ctx context.Context) HealthCheckResult {
		panic("simulated panic")
	})

	assert.NotPanics(t, func() {
		hc.CheckHealth(context.Background())
	})
}

func TestHealthChecker_NoChecksIsUnknown(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	assert.Equal(t, HealthStatusUnknown, hc.GetOverallStatus(map[string]HealthCheckResult{}))
}
