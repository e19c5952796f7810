package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ai-agentic-browser/arbitrage-core/internal/config"
)

func testLogger() *Logger {
	return NewLogger(config.ObservabilityConfig{ServiceName: "test", LogLevel: "debug", LogFormat: "json"})
}

func TestAuditLogger_LogUserActionDoesNotPanic(t *testing.T) {
	al := NewAuditLogger(testLogger())
	assert.NotPanics(t, func() {
		al.LogUserAction(context.Background(), "POST /halt", "operator-1", "halt", map[string]interface{}{"extra": "field"})
	})
}

func TestSecurityLogger_LogAuthEventSuccessAndFailure(t *testing.T) {
	sl := NewSecurityLogger(testLogger())
	assert.NotPanics(t, func() {
		sl.LogAuthEvent(context.Background(), "POST /halt", "operator-1", "10.0.0.1:1234", true)
		sl.LogAuthEvent(context.Background(), "POST /halt", "operator-1", "10.0.0.1:1234", false)
	})
}

func TestLogger_ShouldLogRespectsConfiguredLevel(t *testing.T) {
	l := NewLogger(config.ObservabilityConfig{ServiceName: "test", LogLevel: "warn", LogFormat: "json"})
	assert.False(t, l.shouldLog(LogLevelInfo))
	assert.True(t, l.shouldLog(LogLevelWarn))
	assert.True(t, l.shouldLog(LogLevelError))
}
