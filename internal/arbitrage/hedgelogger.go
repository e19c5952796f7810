package arbitrage

import (
	"context"

	"github.com/ai-agentic-browser/arbitrage-core/pkg/observability"
)

// HedgeLogger is a thin, domain-specific wrapper around the shared
// structured logger. Every call carries the symbol; the race record
// adds the filled and other venues, the hedge record adds venue, order
// id and latency, and the halt record adds the reason.
type HedgeLogger struct {
	logger *observability.Logger
}

// NewHedgeLogger wraps an existing structured logger.
func NewHedgeLogger(logger *observability.Logger) *HedgeLogger {
	return &HedgeLogger{logger: logger}
}

// LogRaceDetected records that a first-fill race was observed on one
// leg while the other was still pending.
func (h *HedgeLogger) LogRaceDetected(ctx context.Context, symbol, filledVenue, otherVenue string) {
	h.logger.Warn(ctx, "hedge race detected: asymmetric fill", map[string]interface{}{
		"symbol":       symbol,
		"filled_venue": filledVenue,
		"other_venue":  otherVenue,
	})
}

// LogHedgePlaced records a hedge market order being placed against a
// venue, with the order id and elapsed latency since fill detection.
func (h *HedgeLogger) LogHedgePlaced(ctx context.Context, symbol, venue, orderID string, latencyMicros int64) {
	h.logger.Info(ctx, "hedge market order placed", map[string]interface{}{
		"symbol":         symbol,
		"venue":          venue,
		"order_id":       orderID,
		"latency_micros": latencyMicros,
	})
}

// LogHalt records that the trading-halt interlock was tripped, with
// the reason that caused it.
func (h *HedgeLogger) LogHalt(ctx context.Context, symbol, reason string) {
	h.logger.Error(ctx, "trading halt triggered", nil, map[string]interface{}{
		"symbol": symbol,
		"reason": reason,
	})
}
