package telemetry

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfilerConfig holds Pyroscope continuous profiling configuration.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	// ProfileTypes names the profiles to collect: cpu, alloc_objects,
	// alloc_space, inuse_objects, inuse_space, goroutines, mutex, block.
	// Empty means cpu, alloc_space, inuse_space and goroutines.
	ProfileTypes  []string
	DisableGCRuns bool
}

// Profiler wraps the Pyroscope profiler with lifecycle management.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	config   ProfilerConfig
	mu       sync.Mutex
	stopped  bool
}

var defaultProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}

// NewProfiler starts the profiler. A disabled config yields a no-op profiler.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler application name is required when profiling is enabled")
	}

	types, err := profileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}

	pcfg := pyroscope.Config{
		ApplicationName:   cfg.ApplicationName,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            &pyroscopeLogger{logger: logger.Named("pyroscope")},
		Tags:              tags,
		ProfileTypes:      types,
		DisableGCRuns:     cfg.DisableGCRuns,
	}
	profiler, err := pyroscope.Start(pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.profiler = profiler

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
	)
	return p, nil
}

func profileTypes(names []string) ([]pyroscope.ProfileType, error) {
	if len(names) == 0 {
		names = defaultProfileTypes
	}
	var types []pyroscope.ProfileType
	for _, name := range names {
		switch name {
		case "cpu":
			types = append(types, pyroscope.ProfileCPU)
		case "alloc_objects":
			types = append(types, pyroscope.ProfileAllocObjects)
		case "alloc_space":
			types = append(types, pyroscope.ProfileAllocSpace)
		case "inuse_objects":
			types = append(types, pyroscope.ProfileInuseObjects)
		case "inuse_space":
			types = append(types, pyroscope.ProfileInuseSpace)
		case "goroutines":
			types = append(types, pyroscope.ProfileGoroutines)
		case "mutex":
			runtime.SetMutexProfileFraction(5)
			types = append(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
		case "block":
			runtime.SetBlockProfileRate(5)
			types = append(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
		default:
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
	}
	return types, nil
}

// Stop flushes pending profiles. It is safe to call more than once.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}
	p.stopped = true
	if p.profiler == nil {
		return nil
	}
	if err := p.profiler.Stop(); err != nil {
		p.logger.Error("Error stopping profiler", zap.Error(err))
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

// IsEnabled reports whether profiles are being pushed.
func (p *Profiler) IsEnabled() bool {
	return p.config.Enabled && p.profiler != nil
}

// GetConfig returns the configuration the profiler was built from.
func (p *Profiler) GetConfig() ProfilerConfig {
	return p.config
}

// WithDocTypeLabels runs fn with a doc_type pprof label so render hot paths
// can be split per document type in Pyroscope.
func WithDocTypeLabels(ctx context.Context, docType string, fn func(context.Context)) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels("doc_type", docType), fn)
}

type pyroscopeLogger struct {
	logger *zap.Logger
}

func (l *pyroscopeLogger) Infof(format string, args ...any) {
	l.logger.Sugar().Infof(format, args...)
}

func (l *pyroscopeLogger) Debugf(format string, args ...any) {
	l.logger.Sugar().Debugf(format, args...)
}

func (l *pyroscopeLogger) Errorf(format string, args ...any) {
	l.logger.Sugar().Errorf(format, args...)
}
