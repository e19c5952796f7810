package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsProvider_RegistersArbitrageDomainInstruments(t *testing.T) {
	mp, err := NewMetricsProvider(MetricsConfig{ServiceName: "test", Namespace: "test", Enabled: true})
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		mp.RecordHTTPRequest(ctx, "GET", "/stats", "200", 5*time.Millisecond)
		mp.RecordArbitrageExecution(ctx, "BTCUSDT", "both_filled", 20*time.Millisecond)
		mp.RecordHedgeRecovery(ctx, "BTCUSDT", "binance")
		mp.RecordTradingHalt(ctx, "fatal_emergency_close_failure")
		mp.SetOpportunityQueueDepth(ctx, 3)
		mp.RecordPipelineDrop(ctx)
		mp.UpdateErrorRate(ctx, 1.5)
		mp.UpdateSystemResourceUsage(ctx, "cpu", 42.0)
	})
}

func TestNewMetricsProvider_DisabledProviderIsNilSafe(t *testing.T) {
	mp, err := NewMetricsProvider(MetricsConfig{Enabled: false})
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		mp.RecordArbitrageExecution(ctx, "BTCUSDT", "both_filled", time.Millisecond)
		mp.RecordHedgeRecovery(ctx, "BTCUSDT", "binance")
		mp.RecordTradingHalt(ctx, "test")
		mp.SetOpportunityQueueDepth(ctx, 1)
		mp.RecordPipelineDrop(ctx)
	})
}
