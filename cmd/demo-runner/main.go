// demo-runner wires the arbitrage core together end to end against an
// in-process synthetic tick generator: Symbol Registry, Market Data
// Store, Market Pipeline, Detector, Opportunity Queue, Race-Condition
// Guard, and the Atomic Execution Protocol, with a small HTTP surface
// for operator controls. Concrete venue clients are out of scope here,
// which is why this generates ticks in-process instead of connecting
// to a real exchange.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/ai-agentic-browser/arbitrage-core/internal/arbitrage"
	"github.com/ai-agentic-browser/arbitrage-core/internal/config"
	"github.com/ai-agentic-browser/arbitrage-core/internal/exchanges/common"
	"github.com/ai-agentic-browser/arbitrage-core/internal/trading"
	"github.com/ai-agentic-browser/arbitrage-core/pkg/observability"
)

var demoVenues = []string{"bybit", "binance", "okx"}
var demoSymbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability)
	ctx := context.Background()

	tracingProvider, err := observability.NewTracingProvider(cfg.Observability)
	if err != nil {
		log.Fatalf("failed to start tracing provider: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = tracingProvider.Shutdown(shutdownCtx)
	}()

	metricsProvider, err := observability.NewMetricsProvider(observability.MetricsConfig{
		ServiceName: cfg.Observability.ServiceName,
		Namespace:   "arbitrage_core",
		Enabled:     true,
	})
	if err != nil {
		log.Fatalf("failed to start metrics provider: %v", err)
	}
	obsMiddleware := observability.NewObservabilityMiddleware(metricsProvider, logger, observability.MiddlewareConfig{
		ServiceName:   cfg.Observability.ServiceName,
		SlowThreshold: 200 * time.Millisecond,
	})
	go func() {
		if err := metricsProvider.StartMetricsServer(cfg.Observability.MetricsPort); err != nil && err != http.ErrServerClosed {
			logger.Warn(ctx, "metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsProvider.Shutdown(shutdownCtx)
	}()

	registry := arbitrage.NewSymbolRegistry()
	store := arbitrage.NewMarketDataStore(cfg.Arbitrage.MaxSymbols)
	pipeline := arbitrage.NewMarketPipeline(cfg.Arbitrage.PipelineCapacity)
	queue := arbitrage.NewOpportunityQueue(cfg.Arbitrage.OpportunityQueueCapacity)
	guard := arbitrage.NewRaceGuard()
	backend := common.NewSimulatedBackend(true)

	var execBackend common.ExecutionBackend = backend
	if cfg.Arbitrage.SingleExchangeMode {
		execBackend = common.NewSingleExchangeBackend(backend, cfg.Arbitrage.PrimaryExchange)
	}

	seedSymbolMatrix(registry)
	seedLiquidity(backend)

	detector := arbitrage.NewDetector(
		registry, store, queue, execBackend, nil,
		arbitrage.DepthThresholds{MinDepthUSD: 0, MaxLatencyMicros: 1_000_000, MinFundingDelta: -1},
		cfg.Arbitrage.MinSpreadBps, cfg.Arbitrage.MinConfidenceScore, cfg.Arbitrage.QuoteStaleness,
		logger,
	)
	engine := trading.NewExecutionEngine(execBackend, guard, logger, cfg.Arbitrage.FillPollDeadline, cfg.Arbitrage.FillPollInterval)

	detectorCtx, cancelDetector := context.WithCancel(ctx)
	go detector.Run(detectorCtx, pipeline)
	go runStrategyLoop(detectorCtx, queue, engine, logger, obsMiddleware.PerformanceMonitor(), metricsProvider)
	go generateTicks(detectorCtx, registry, pipeline)
	go reportPipelineMetrics(detectorCtx, pipeline, cfg.Arbitrage.PipelineCapacity, obsMiddleware.PerformanceMonitor(), metricsProvider)

	healthChecker := observability.NewHealthChecker(logger)
	healthChecker.RegisterCheck("trading_halt", func(ctx context.Context) observability.HealthCheckResult {
		if arbitrage.IsTradingHalted() {
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "trading halted",
				Details: map[string]interface{}{"reason": arbitrage.HaltReason()},
			}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	healthChecker.RegisterCheck("pipeline_backlog", func(ctx context.Context) observability.HealthCheckResult {
		if pipeline.Len() >= cfg.Arbitrage.PipelineCapacity {
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "pipeline at capacity",
				Details: map[string]interface{}{"dropped": pipeline.DroppedCount()},
			}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	healthServer := observability.NewHealthServer(healthChecker, observability.ServiceInfo{
		Name:        cfg.Observability.ServiceName,
		Environment: "demo",
	}, logger)

	router := newRouter(pipeline, logger)
	healthServer.RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      obsMiddleware.HTTPMiddleware(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "starting demo-runner", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancelDetector()
	pipeline.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info(ctx, "demo-runner stopped", nil)
}

func seedSymbolMatrix(registry *arbitrage.SymbolRegistry) []arbitrage.SymbolKey {
	var pairs []arbitrage.SymbolKey
	for _, sym := range demoSymbols {
		for _, venue := range demoVenues {
			pairs = append(pairs, arbitrage.SymbolKey{Venue: venue, Symbol: sym})
		}
	}
	registry.SeedCanonical(pairs)
	return pairs
}

func seedLiquidity(backend *common.SimulatedBackend) {
	for _, sym := range demoSymbols {
		for _, venue := range demoVenues {
			backend.SetDepth(venue, sym, 1_000_000)
		}
	}
}

// generateTicks synthesizes a market update per venue/symbol pair at a
// rate-limited cadence, standing in for the real exchange feed the
// core is designed to consume.
func generateTicks(ctx context.Context, registry *arbitrage.SymbolRegistry, pipeline *arbitrage.MarketPipeline) {
	limiter := rate.NewLimiter(rate.Limit(200), 10)
	basePrices := map[string]float64{"BTCUSDT": 60000, "ETHUSDT": 3000, "SOLUSDT": 150}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		sym := demoSymbols[rand.Intn(len(demoSymbols))]
		venue := demoVenues[rand.Intn(len(demoVenues))]
		base := basePrices[sym]
		jitter := base * (rand.Float64()*0.004 - 0.002)
		bid := base + jitter
		ask := bid + base*0.0003

		id := registry.GetOrInsert(venue, sym)
		pipeline.Publish(arbitrage.MarketUpdate{
			SymbolID:    id,
			Bid:         bid,
			Ask:         ask,
			TimestampUs: uint64(time.Now().UnixMicro()),
		})
	}
}

// runStrategyLoop repeatedly pops the best candidate and attempts an
// atomic entry against it: Opportunity Queue -> strategy loop ->
// Race-Condition Guard -> Atomic Execution Protocol.
func runStrategyLoop(
	ctx context.Context,
	queue *arbitrage.OpportunityQueue,
	engine *trading.ExecutionEngine,
	logger *observability.Logger,
	perfMonitor *observability.PerformanceMonitor,
	metricsProvider *observability.MetricsProvider,
) {
	arbitrage.TryPinCurrentThread()
	if cpus := arbitrage.NumCPU(); cpus < 8 {
		logger.Warn(ctx, "fewer than 8 logical CPUs available, degrading strategy thread pinning", map[string]interface{}{"logical_cpus": cpus})
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var totalEvictions int64
	var lastQueueDepth int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		evicted := queue.EvictStale(time.Now(), 5*time.Second)
		totalEvictions += int64(evicted)

		depth := int64(queue.Len())
		perfMonitor.RecordOpportunityQueueMetrics(depth, totalEvictions)
		metricsProvider.SetOpportunityQueueDepth(ctx, depth-lastQueueDepth)
		lastQueueDepth = depth

		opp, ok := queue.PopBest()
		if !ok {
			continue
		}

		start := time.Now()
		result, err := engine.ExecuteAtomicEntry(ctx, opp, decimal.NewFromFloat(0.01))
		duration := time.Since(start)
		metricsProvider.RecordArbitrageExecution(ctx, opp.Symbol, result.Outcome.String(), duration)

		switch result.Outcome {
		case trading.OutcomeHedgeRecovered:
			perfMonitor.RecordHedgeRecovery()
			metricsProvider.RecordHedgeRecovery(ctx, opp.Symbol, result.ShortOrder.Venue)
		case trading.OutcomeEmergencyClosed:
			perfMonitor.RecordHedgeRecovery()
			metricsProvider.RecordHedgeRecovery(ctx, opp.Symbol, result.LongOrder.Venue)
		case trading.OutcomeFatalHalt:
			perfMonitor.RecordTradingHalt()
			metricsProvider.RecordTradingHalt(ctx, "fatal_emergency_close_failure")
		}

		if err != nil {
			logger.Warn(ctx, "atomic entry did not complete cleanly", map[string]interface{}{
				"symbol": opp.Symbol, "outcome": result.Outcome.String(), "error": err.Error(),
			})
			continue
		}
		logger.Info(ctx, "atomic entry resolved", map[string]interface{}{
			"symbol": opp.Symbol, "outcome": result.Outcome.String(), "spread_bps": opp.SpreadBps,
		})
	}
}

// reportPipelineMetrics periodically feeds the Market Pipeline's depth,
// configured capacity, and dropped-update count into the shared
// performance monitor and metrics provider, so pipeline backpressure
// shows up next to the HTTP metrics the middleware already records.
func reportPipelineMetrics(
	ctx context.Context,
	pipeline *arbitrage.MarketPipeline,
	capacity int,
	perfMonitor *observability.PerformanceMonitor,
	metricsProvider *observability.MetricsProvider,
) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastDropped int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		depth := int64(pipeline.Len())
		dropped := int64(pipeline.DroppedCount())
		perfMonitor.RecordPipelineMetrics(depth, int64(capacity), dropped)

		if delta := dropped - lastDropped; delta > 0 {
			for i := int64(0); i < delta; i++ {
				metricsProvider.RecordPipelineDrop(ctx)
			}
		}
		lastDropped = dropped
	}
}

func newRouter(pipeline *arbitrage.MarketPipeline, logger *observability.Logger) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/stats", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"pipeline_len":     pipeline.Len(),
			"pipeline_dropped": pipeline.DroppedCount(),
			"trading_halted":   arbitrage.IsTradingHalted(),
			"halt_reason":      arbitrage.HaltReason(),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/halt", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Reason string `json:"reason"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		if body.Reason == "" {
			body.Reason = "operator requested halt"
		}
		arbitrage.HaltTrading(body.Reason)
		logger.Info(req.Context(), "trading halted via operator control", map[string]interface{}{"reason": body.Reason})
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	r.HandleFunc("/resume", func(w http.ResponseWriter, req *http.Request) {
		arbitrage.ResumeTrading()
		logger.Info(req.Context(), "trading resumed via operator control", nil)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	return r
}
