package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric names
const (
	MetricHTTPRequests       = "http_server_request_total"
	MetricHTTPDuration       = "http_server_request_duration_seconds"
	MetricHTTPResponseSize   = "http_server_response_size_bytes"
	MetricHTTPActiveRequests = "http_server_active_requests"
)

var (
	httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	// PDFs with embedded images reach several megabytes
	responseSizeBuckets = []float64{100, 1000, 10000, 100000, 500000, 1000000, 5000000, 20000000}
)

// httpMetrics holds all HTTP-related metrics instruments.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  *telemetry.UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}
	var err error

	if m.requestTotal, err = telemetry.NewCounter(meter, MetricHTTPRequests,
		"Total number of HTTP requests", "{request}"); err != nil {
		return nil, err
	}
	if m.requestDuration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        MetricHTTPDuration,
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Buckets:     httpDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.responseSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        MetricHTTPResponseSize,
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Buckets:     responseSizeBuckets,
	}); err != nil {
		return nil, err
	}
	if m.activeRequests, err = telemetry.NewUpDownCounter(meter, MetricHTTPActiveRequests,
		"Number of currently active HTTP requests", "{request}"); err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPMetrics returns a middleware recording request count, latency,
// response size and in-flight requests. Instruments that fail to register
// leave the middleware a pass-through.
//
// Routes are labelled by pattern (c.FullPath) to bound cardinality.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		base := []attribute.KeyValue{
			telemetry.AttrMethod.String(c.Request.Method),
			telemetry.AttrRoute.String(routePattern(c)),
		}
		metrics.requestTotal.Inc(ctx, append(base, telemetry.AttrStatusCode.Int(c.Writer.Status()))...)
		metrics.requestDuration.RecordDuration(ctx, time.Since(start), base...)
		if size := c.Writer.Size(); size > 0 {
			metrics.responseSize.Record(ctx, float64(size), base...)
		}
	}
}

func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
