package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "pdf", "render",
		telemetry.WithAttribute("doc_type", "invoice"),
		telemetry.WithSpanKind(trace.SpanKindServer))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pdf.render", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, "invoice", attrMap(spans[0].Attributes())["doc_type"].AsString())
}

func TestStartSpan_DefaultsToInternal(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "pdf.preview")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, trace.SpanKindInternal, sr.Ended()[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "attrs")
	telemetry.SetAttributes(span,
		"document_number", "INV-001",
		"bytes", 2048,
		"engine_generation", int64(3),
		"ratio", 0.5,
		"cached", false,
		42, "skipped",
		"dangling",
	)
	telemetry.SetAttribute(span, "generation", uint64(7))
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, "INV-001", attrs["document_number"].AsString())
	assert.Equal(t, int64(2048), attrs["bytes"].AsInt64())
	assert.Equal(t, int64(3), attrs["engine_generation"].AsInt64())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
	assert.False(t, attrs["cached"].AsBool())
	assert.Equal(t, int64(7), attrs["generation"].AsInt64())
	assert.NotContains(t, attrs, "dangling")
	assert.Len(t, attrs, 6)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "failing")
	telemetry.RecordError(span, errors.New("engine disconnected"))
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "engine disconnected", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestRecordError_NilIsNoop(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ok")
	telemetry.RecordError(span, nil)
	telemetry.SetOK(span)
	span.End()

	assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
	assert.NotPanics(t, func() {
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.AddEvent(nil, "e")
		telemetry.SetOK(nil)
	})
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "events")
	telemetry.AddEvent(span, "engine_relaunched", "generation", 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "engine_relaunched", events[0].Name)
	assert.Equal(t, int64(2), attrMap(events[0].Attributes)["generation"].AsInt64())
}

func TestTraceAndSpanIDs(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "ids")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), telemetry.GetSpanID(ctx))
}
