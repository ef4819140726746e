package printing

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultLaunchTimeout = 30 * time.Second
	launchKey            = "engine"
)

// Engine states reported by Stats
const (
	EngineStateIdle    = "idle"
	EngineStateRunning = "running"
	EngineStateClosed  = "closed"
)

// EngineHandle is the live engine shared by all sessions of one generation.
// A handle is never revived: once its engine disconnects a new handle with
// a higher generation replaces it.
type EngineHandle struct {
	engine     Engine
	generation uint64
	launchedAt time.Time
}

// Generation returns the launch sequence number of this handle
func (h *EngineHandle) Generation() uint64 {
	return h.generation
}

// Connected reports whether the underlying engine is still reachable
func (h *EngineHandle) Connected() bool {
	return h.engine.Connected()
}

// EngineStats is a lock-free snapshot of the supervisor
type EngineStats struct {
	State      string    `json:"state"`
	Generation uint64    `json:"generation"`
	Launches   int64     `json:"launches"`
	LaunchedAt time.Time `json:"launched_at,omitzero"`
}

// SupervisorHooks receives engine lifecycle events, e.g. for metrics
type SupervisorHooks struct {
	OnLaunch       func(generation uint64, took time.Duration, err error)
	OnDisconnected func(generation uint64)
}

// EngineSupervisor owns the single shared engine. It is the only writer of
// the current handle; readers load it atomically without locking.
type EngineSupervisor struct {
	launcher      Launcher
	logger        *zap.Logger
	launchTimeout time.Duration
	hooks         SupervisorHooks

	current    atomic.Pointer[EngineHandle]
	group      singleflight.Group
	generation atomic.Uint64
	launches   atomic.Int64
	closed     atomic.Bool
}

// SupervisorOption configures an EngineSupervisor
type SupervisorOption func(*EngineSupervisor)

// WithLaunchTimeout bounds how long a single engine launch may take
func WithLaunchTimeout(d time.Duration) SupervisorOption {
	return func(s *EngineSupervisor) {
		if d > 0 {
			s.launchTimeout = d
		}
	}
}

// WithSupervisorHooks installs lifecycle callbacks
func WithSupervisorHooks(h SupervisorHooks) SupervisorOption {
	return func(s *EngineSupervisor) {
		s.hooks = h
	}
}

// NewEngineSupervisor creates a supervisor. No engine is started until the
// first Acquire.
func NewEngineSupervisor(launcher Launcher, logger *zap.Logger, opts ...SupervisorOption) *EngineSupervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EngineSupervisor{
		launcher:      launcher,
		logger:        logger,
		launchTimeout: defaultLaunchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns the live engine handle, launching the engine if none is
// running. Concurrent callers during a launch share the same launch.
func (s *EngineSupervisor) Acquire(ctx context.Context) (*EngineHandle, error) {
	if h := s.current.Load(); h != nil {
		if h.Connected() {
			return h, nil
		}
		s.ReportDisconnected(h)
	}
	if s.closed.Load() {
		return nil, NewRenderError(ErrCodeEngineUnavailable, "render engine is shut down", nil)
	}

	ch := s.group.DoChan(launchKey, func() (any, error) {
		if h := s.current.Load(); h != nil && h.Connected() {
			return h, nil
		}
		return s.launch()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*EngineHandle), nil
	case <-ctx.Done():
		return nil, NewRenderError(ErrCodeEngineUnavailable, "waiting for render engine", ctx.Err())
	}
}

// launch starts a new engine. It runs detached from any single caller's
// context because other waiters may share its result.
func (s *EngineSupervisor) launch() (*EngineHandle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.launchTimeout)
	defer cancel()

	gen := s.generation.Add(1)
	start := time.Now()
	s.logger.Info("launching render engine", zap.Uint64("engine_generation", gen))

	engine, err := s.launcher.Launch(ctx)
	s.launches.Add(1)
	if s.hooks.OnLaunch != nil {
		s.hooks.OnLaunch(gen, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error("render engine launch failed",
			zap.Uint64("engine_generation", gen),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, NewRenderError(ErrCodeEngineUnavailable, "failed to launch render engine", err)
	}

	h := &EngineHandle{engine: engine, generation: gen, launchedAt: time.Now()}
	s.current.Store(h)

	if s.closed.Load() {
		// Close raced with this launch; don't leave an orphaned process behind.
		s.current.CompareAndSwap(h, nil)
		s.closeHandle(context.Background(), h)
		return nil, NewRenderError(ErrCodeEngineUnavailable, "render engine is shut down", nil)
	}

	go s.watch(h)

	s.logger.Info("render engine ready",
		zap.Uint64("engine_generation", gen),
		zap.Duration("duration", time.Since(start)))
	return h, nil
}

// watch invalidates h as soon as its engine reports the connection lost
func (s *EngineSupervisor) watch(h *EngineHandle) {
	<-h.engine.Done()
	s.ReportDisconnected(h)
}

// ReportDisconnected clears the shared handle if it is still h. A handle
// installed by a newer launch is left untouched. Recovery is lazy: the next
// Acquire launches a replacement.
func (s *EngineSupervisor) ReportDisconnected(h *EngineHandle) {
	if h == nil || !s.current.CompareAndSwap(h, nil) {
		return
	}
	s.logger.Warn("render engine disconnected",
		zap.Uint64("engine_generation", h.generation),
		zap.Duration("uptime", time.Since(h.launchedAt)))
	if s.hooks.OnDisconnected != nil {
		s.hooks.OnDisconnected(h.generation)
	}
	// Reap whatever is left of the process.
	go s.closeHandle(context.Background(), h)
}

// Close stops the engine and refuses further launches
func (s *EngineSupervisor) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	h := s.current.Swap(nil)
	if h == nil {
		return nil
	}
	s.logger.Info("closing render engine", zap.Uint64("engine_generation", h.generation))
	return h.engine.Close(ctx)
}

func (s *EngineSupervisor) closeHandle(ctx context.Context, h *EngineHandle) {
	if err := h.engine.Close(ctx); err != nil {
		s.logger.Debug("render engine close failed",
			zap.Uint64("engine_generation", h.generation),
			zap.Error(err))
	}
}

// LaunchCount returns how many launches have been attempted
func (s *EngineSupervisor) LaunchCount() int64 {
	return s.launches.Load()
}

// Stats returns the current engine state without launching anything
func (s *EngineSupervisor) Stats() EngineStats {
	stats := EngineStats{
		State:      EngineStateIdle,
		Generation: s.generation.Load(),
		Launches:   s.launches.Load(),
	}
	if s.closed.Load() {
		stats.State = EngineStateClosed
		return stats
	}
	if h := s.current.Load(); h != nil && h.Connected() {
		stats.State = EngineStateRunning
		stats.Generation = h.generation
		stats.LaunchedAt = h.launchedAt
	}
	return stats
}
