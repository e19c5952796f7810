package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMiddleware(t *testing.T) *ObservabilityMiddleware {
	t.Helper()
	metrics, err := NewMetricsProvider(MetricsConfig{ServiceName: "test", Namespace: "test", Enabled: true})
	require.NoError(t, err)
	return NewObservabilityMiddleware(metrics, testLogger(), MiddlewareConfig{ServiceName: "test"})
}

func TestObservabilityMiddleware_SetsRequestIDHeaderAndCallsNext(t *testing.T) {
	om := testMiddleware(t)

	called := false
	handler := om.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestObservabilityMiddleware_PassesThroughHandlerStatusCode(t *testing.T) {
	om := testMiddleware(t)

	handler := om.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/halt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestObservabilityMiddleware_IsAuthAndSensitiveEndpoints(t *testing.T) {
	om := testMiddleware(t)
	assert.True(t, om.isAuthEndpoint("/halt"))
	assert.True(t, om.isAuthEndpoint("/resume"))
	assert.False(t, om.isAuthEndpoint("/stats"))
	assert.True(t, om.isSensitiveEndpoint("/resume"))
	assert.False(t, om.isSensitiveEndpoint("/healthz"))
}

func TestObservabilityMiddleware_GetUserIDFallsBackToAnonymous(t *testing.T) {
	om := testMiddleware(t)

	req := httptest.NewRequest(http.MethodPost, "/halt", nil)
	assert.Equal(t, "anonymous", om.getUserID(req))

	req.Header.Set("X-User-ID", "ops-42")
	assert.Equal(t, "ops-42", om.getUserID(req))
}

func TestObservabilityMiddleware_ExtractResource(t *testing.T) {
	om := testMiddleware(t)
	assert.Equal(t, "halt", om.extractResource("/halt"))
	assert.Equal(t, "unknown", om.extractResource("/"))
}

func TestObservabilityMiddleware_PerformanceMonitorIsSharedAcrossRequests(t *testing.T) {
	om := testMiddleware(t)
	pm := om.PerformanceMonitor()
	require.NotNil(t, pm)

	handler := om.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(1), pm.GetMetrics().RequestCount, "the HTTP request must be recorded against the same monitor the accessor returns")

	pm.RecordHedgeRecovery()
	pm.RecordTradingHalt()
	pm.RecordPipelineMetrics(10, 100, 2)
	pm.RecordOpportunityQueueMetrics(5, 1)

	metrics := pm.GetMetrics()
	assert.Equal(t, int64(1), metrics.HedgeRecoveryCount)
	assert.Equal(t, int64(1), metrics.TradingHaltCount)
	assert.Equal(t, int64(10), metrics.PipelineDepth)
	assert.Equal(t, int64(5), metrics.OpportunityQueueDepth)
}
