package telemetry

import (
	"context"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	tp, err := NewTracerProvider(ctx, Config{ServiceName: "pdf-service"}, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	require.NoError(t, tp.EnableSpanProfiles())
	assert.False(t, tp.IsSpanProfilesEnabled())
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, MetricsConfig{ServiceName: "pdf-service"}, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.Equal(t, "pdf-service", mp.GetConfig().ServiceName)
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, LogsConfig{ServiceName: "pdf-service"}, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, logger, lp.Bridge(logger))
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestNewResource(t *testing.T) {
	res, err := newResource("pdf-service")
	require.NoError(t, err)

	var found bool
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" {
			found = true
			assert.Equal(t, "pdf-service", kv.Value.AsString())
		}
	}
	assert.True(t, found)
}

func TestLevelFilterCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: core, minLevel: zapcore.WarnLevel}
	logger := zap.New(filtered).With(zap.String("component", "supervisor"))

	logger.Info("dropped")
	logger.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "supervisor", entry.ContextMap()["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}

func TestProfiler(t *testing.T) {
	logger := zaptest.NewLogger(t)

	p, err := NewProfiler(ProfilerConfig{ApplicationName: "pdf-service"}, logger)
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "pdf-service"}, logger)
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, logger)
	assert.ErrorContains(t, err, "application name")

	_, err = NewProfiler(ProfilerConfig{
		Enabled:         true,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "pdf-service",
		ProfileTypes:    []string{"heap"},
	}, logger)
	assert.ErrorContains(t, err, `unknown profile type "heap"`)
}

func TestProfileTypes(t *testing.T) {
	types, err := profileTypes(nil)
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}, types)

	types, err = profileTypes([]string{"cpu", "mutex"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileMutexCount,
		pyroscope.ProfileMutexDuration,
	}, types)
}

func TestWithDocTypeLabels(t *testing.T) {
	called := false
	WithDocTypeLabels(context.Background(), "invoice", func(ctx context.Context) {
		called = true
		assert.NotNil(t, ctx)
	})
	assert.True(t, called)
}
