package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ObservabilityMiddleware provides comprehensive observability for HTTP requests
type ObservabilityMiddleware struct {
	tracer         trace.Tracer
	metrics        *MetricsProvider
	logger         *Logger
	performanceLog *PerformanceLogger
	securityLog    *SecurityLogger
	auditLog       *AuditLogger
	perfMonitor    *PerformanceMonitor
	serviceName    string
	slowThreshold  time.Duration
}

// MiddlewareConfig contains configuration for observability middleware
type MiddlewareConfig struct {
	ServiceName    string
	ServiceVersion string
	SlowThreshold  time.Duration
	EnableTracing  bool
	EnableMetrics  bool
	EnableLogging  bool
	EnableSecurity bool
	EnableAudit    bool
}

// NewObservabilityMiddleware creates a new observability middleware
func NewObservabilityMiddleware(
	metrics *MetricsProvider,
	logger *Logger,
	config MiddlewareConfig,
) *ObservabilityMiddleware {
	tracer := otel.Tracer(config.ServiceName)

	slowThreshold := config.SlowThreshold
	if slowThreshold == 0 {
		slowThreshold = 1 * time.Second
	}

	return &ObservabilityMiddleware{
		tracer:         tracer,
		metrics:        metrics,
		logger:         logger,
		performanceLog: NewPerformanceLogger(logger),
		securityLog:    NewSecurityLogger(logger),
		auditLog:       NewAuditLogger(logger),
		perfMonitor:    NewPerformanceMonitor(logger),
		serviceName:    config.ServiceName,
		slowThreshold:  slowThreshold,
	}
}

// PerformanceMonitor returns the monitor backing this middleware's HTTP
// metrics, so callers outside the request path (a periodic reporter
// feeding it pipeline, queue, and execution-outcome data) can share it
// rather than construct a second, disconnected monitor.
func (om *ObservabilityMiddleware) PerformanceMonitor() *PerformanceMonitor {
	return om.perfMonitor
}

// HTTPMiddleware returns a standard HTTP middleware for observability
func (om *ObservabilityMiddleware) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Generate request ID
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		// Extract trace context from headers
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		// Start span
		spanName := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		ctx, span := om.tracer.Start(ctx, spanName)
		defer span.End()

		// Set span attributes
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
			attribute.String("http.user_agent", r.UserAgent()),
			attribute.String("http.remote_addr", r.RemoteAddr),
			attribute.String("request.id", requestID),
			attribute.String("service.name", om.serviceName),
		)

		// Create response writer wrapper to capture status code and size
		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Add trace context to request
		r = r.WithContext(ctx)

		// Log request start
		om.logger.Info(ctx, "HTTP request started", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"user_agent":  r.UserAgent(),
			"remote_addr": r.RemoteAddr,
			"request_id":  requestID,
		})

		// Process request
		next.ServeHTTP(rw, r)

		// Calculate duration
		duration := time.Since(start)
		statusCode := rw.statusCode

		// Set final span attributes
		span.SetAttributes(
			attribute.Int("http.status_code", statusCode),
			attribute.Int64("http.response_size", int64(rw.size)),
			attribute.Float64("http.duration_ms", float64(duration.Nanoseconds())/1e6),
		)

		// Set span status based on HTTP status code
		if statusCode >= 400 {
			span.SetAttributes(attribute.Bool("error", true))
			if statusCode >= 500 {
				span.RecordError(fmt.Errorf("HTTP %d", statusCode))
			}
		}

		// Record metrics
		if om.metrics != nil {
			om.metrics.RecordHTTPRequest(
				ctx,
				r.Method,
				r.URL.Path,
				strconv.Itoa(statusCode),
				duration,
			)
		}

		// Log request completion
		logFields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": statusCode,
			"duration_ms": duration.Milliseconds(),
			"request_id":  requestID,
			"user_agent":  r.UserAgent(),
			"remote_addr": r.RemoteAddr,
		}

		if statusCode >= 400 {
			om.logger.Warn(ctx, "HTTP request completed with error", logFields)
		} else {
			om.logger.Info(ctx, "HTTP request completed", logFields)
		}

		// Log slow requests
		if duration > om.slowThreshold {
			om.performanceLog.LogSlowOperation(
				ctx,
				fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				duration,
				om.slowThreshold,
				logFields,
			)
		}

		if om.isAuthEndpoint(r.URL.Path) {
			om.securityLog.LogAuthEvent(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path), om.getUserID(r), r.RemoteAddr, statusCode < 400, logFields)
		}
		if om.isSensitiveEndpoint(r.URL.Path) && statusCode < 400 {
			om.auditLog.LogUserAction(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path), om.getUserID(r), om.extractResource(r.URL.Path), logFields)
		}

		om.perfMonitor.RecordRequest(&RequestMetrics{
			Path:       r.URL.Path,
			Method:     r.Method,
			StatusCode: statusCode,
			Duration:   duration,
			Size:       int64(rw.size),
			UserAgent:  r.UserAgent(),
			IP:         r.RemoteAddr,
			Timestamp:  start,
		})
	})
}

// responseWriter wraps http.ResponseWriter to capture status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(data)
	rw.size += size
	return size, err
}

// Helper methods

// isAuthEndpoint reports whether path is one of this service's operator
// auth-adjacent surfaces. There is no login flow in this module; halt
// and resume are the closest analogue since both gate trading state.
func (om *ObservabilityMiddleware) isAuthEndpoint(path string) bool {
	return path == "/halt" || path == "/resume"
}

func (om *ObservabilityMiddleware) isSensitiveEndpoint(path string) bool {
	return path == "/halt" || path == "/resume"
}

// getUserID reads the X-User-ID header set by an upstream operator
// gateway, falling back to "anonymous" for unauthenticated local calls.
func (om *ObservabilityMiddleware) getUserID(r *http.Request) string {
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		return uid
	}
	return "anonymous"
}

func (om *ObservabilityMiddleware) extractResource(path string) string {
	if len(path) > 1 {
		return path[1:]
	}
	return "unknown"
}
