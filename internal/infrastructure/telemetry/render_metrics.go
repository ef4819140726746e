package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Render metric names.
const (
	MetricRendersTotal       = "pdf_renders_total"
	MetricRenderDuration     = "pdf_render_duration_seconds"
	MetricActiveSessions     = "pdf_active_sessions"
	MetricEngineLaunches     = "pdf_engine_launches_total"
	MetricEngineLaunchTime   = "pdf_engine_launch_duration_seconds"
	MetricEngineDisconnected = "pdf_engine_disconnects_total"
)

// renderBuckets spans a warm render (~100ms) up to the 60s render timeout.
var renderBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// RenderMetrics records render outcomes, open sessions and engine lifecycle.
// It satisfies the render service's recorder and feeds the supervisor hooks.
type RenderMetrics struct {
	renders        *Counter
	renderDuration *Histogram
	activeSessions *UpDownCounter
	launches       *Counter
	launchDuration *Histogram
	disconnects    *Counter
}

// NewRenderMetrics registers the render instruments on meter.
func NewRenderMetrics(meter metric.Meter) (*RenderMetrics, error) {
	m := &RenderMetrics{}
	var err error

	if m.renders, err = NewCounter(meter, MetricRendersTotal,
		"PDF renders by document type and outcome", "{render}"); err != nil {
		return nil, fmt.Errorf("render metrics: %w", err)
	}
	if m.renderDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        MetricRenderDuration,
		Description: "End-to-end PDF render latency",
		Unit:        "s",
		Buckets:     renderBuckets,
	}); err != nil {
		return nil, fmt.Errorf("render metrics: %w", err)
	}
	if m.activeSessions, err = NewUpDownCounter(meter, MetricActiveSessions,
		"Render sessions currently open on the shared engine", "{session}"); err != nil {
		return nil, fmt.Errorf("render metrics: %w", err)
	}
	if m.launches, err = NewCounter(meter, MetricEngineLaunches,
		"Render engine launch attempts", "{launch}"); err != nil {
		return nil, fmt.Errorf("render metrics: %w", err)
	}
	if m.launchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        MetricEngineLaunchTime,
		Description: "Render engine launch latency",
		Unit:        "s",
	}); err != nil {
		return nil, fmt.Errorf("render metrics: %w", err)
	}
	if m.disconnects, err = NewCounter(meter, MetricEngineDisconnected,
		"Render engine disconnects observed", "{disconnect}"); err != nil {
		return nil, fmt.Errorf("render metrics: %w", err)
	}
	return m, nil
}

// RecordRender counts one finished render and its latency.
func (m *RenderMetrics) RecordRender(ctx context.Context, docType, outcome, code string, d time.Duration) {
	attrs := []attribute.KeyValue{AttrDocType.String(docType), AttrOutcome.String(outcome)}
	if code != "" {
		attrs = append(attrs, AttrErrorCode.String(code))
	}
	m.renders.Inc(ctx, attrs...)
	m.renderDuration.RecordDuration(ctx, d, AttrDocType.String(docType), AttrOutcome.String(outcome))
}

// SessionOpened increments the open session gauge.
func (m *RenderMetrics) SessionOpened(ctx context.Context) {
	m.activeSessions.Add(ctx, 1)
}

// SessionClosed decrements the open session gauge.
func (m *RenderMetrics) SessionClosed(ctx context.Context) {
	m.activeSessions.Add(ctx, -1)
}

// EngineLaunched records a launch attempt. Its signature matches the
// supervisor's OnLaunch hook.
func (m *RenderMetrics) EngineLaunched(_ uint64, took time.Duration, err error) {
	ctx := context.Background()
	outcome := AttrOutcome.String("success")
	if err != nil {
		outcome = AttrOutcome.String("failure")
	}
	m.launches.Inc(ctx, outcome)
	m.launchDuration.RecordDuration(ctx, took, outcome)
}

// EngineDisconnected records the loss of an engine generation.
func (m *RenderMetrics) EngineDisconnected(uint64) {
	m.disconnects.Inc(context.Background())
}
