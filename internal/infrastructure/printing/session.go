package printing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
	"go.uber.org/zap"
)

const (
	defaultViewportWidth   = 1200
	defaultViewportHeight  = 10000
	defaultRenderTimeout   = 60 * time.Second
	defaultProtocolTimeout = 120 * time.Second
)

// SessionConfig tunes a Session. Zero values select the defaults.
type SessionConfig struct {
	// Viewport is deliberately oversized so the whole document is laid out
	// before pagination.
	Viewport Viewport
	// ProtocolTimeout bounds pagination inside the engine
	ProtocolTimeout time.Duration
	Logger          *zap.Logger
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = defaultViewportWidth
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = defaultViewportHeight
	}
	if c.ProtocolTimeout <= 0 {
		c.ProtocolTimeout = defaultProtocolTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Session is one request's isolated page on the shared engine. It must be
// disposed on every exit path; Dispose is idempotent.
type Session struct {
	id         string
	handle     *EngineHandle
	supervisor *EngineSupervisor
	page       Page
	cfg        SessionConfig
	logger     *zap.Logger

	disposeOnce sync.Once
}

// OpenSession allocates a new page on the engine behind handle
func OpenSession(ctx context.Context, supervisor *EngineSupervisor, handle *EngineHandle, cfg SessionConfig) (*Session, error) {
	cfg = cfg.withDefaults()
	id := uuid.NewString()
	logger := cfg.Logger.With(
		zap.String("session_id", id),
		zap.Uint64("engine_generation", handle.generation),
	)

	page, err := handle.engine.NewPage(ctx, cfg.Viewport)
	if err != nil {
		if !handle.Connected() {
			supervisor.ReportDisconnected(handle)
			return nil, NewRenderError(ErrCodeEngineDisconnected, "engine disconnected while opening session", err)
		}
		return nil, NewRenderError(ErrCodeSessionOpenFailed, "failed to open rendering context", err)
	}

	return &Session{
		id:         id,
		handle:     handle,
		supervisor: supervisor,
		page:       page,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Generation returns the engine generation the session is bound to
func (s *Session) Generation() uint64 {
	return s.handle.generation
}

// RenderMarkup loads markup and waits for network idle, bounded by timeout
func (s *Session) RenderMarkup(ctx context.Context, markup string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.page.SetContent(ctx, markup); err != nil {
		return s.fail(ctx, "render markup", timeout, err)
	}
	return nil
}

// ProducePDF paginates the loaded content with footer on every page
func (s *Session) ProducePDF(ctx context.Context, footer string, opts printing.PageOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ProtocolTimeout)
	defer cancel()

	data, err := s.page.PrintToPDF(ctx, buildPrintParams(footer, opts))
	if err != nil {
		return nil, s.fail(ctx, "produce pdf", s.cfg.ProtocolTimeout, err)
	}
	if len(data) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}
	return data, nil
}

// fail classifies err and invalidates the engine handle if it went away
func (s *Session) fail(ctx context.Context, op string, timeout time.Duration, err error) error {
	connected := s.handle.Connected()
	if !connected {
		s.supervisor.ReportDisconnected(s.handle)
	}
	// The disconnect notice can trail the failed call; the error itself
	// already says the connection is gone.
	rerr := classifyError(ctx, op, timeout, connected && !engineGone(err), err)
	s.logger.Warn("render session failed",
		zap.String("op", op),
		zap.String("code", rerr.Code),
		zap.Error(err))
	return rerr
}

// Dispose closes the page. Close failures are logged, never returned, so
// they cannot mask the render outcome.
func (s *Session) Dispose() {
	s.disposeOnce.Do(func() {
		if err := s.page.Close(); err != nil {
			s.logger.Warn("failed to close rendering context", zap.Error(err))
		}
	})
}

// buildPrintParams converts page options into engine print parameters
func buildPrintParams(footer string, opts printing.PageOptions) PrintParams {
	if !opts.PaperSize.IsValid() {
		opts.PaperSize = printing.PaperSizeA4
	}
	if opts.Scale <= 0 {
		opts.Scale = 1.0
	}
	margins := opts.Margins.WithFooterBand()
	width, height := opts.PaperSize.Dimensions()

	return PrintParams{
		PaperWidth:      mmToInches(float64(width)),
		PaperHeight:     mmToInches(float64(height)),
		MarginTop:       mmToInches(float64(margins.Top)),
		MarginRight:     mmToInches(float64(margins.Right)),
		MarginBottom:    mmToInches(float64(margins.Bottom)),
		MarginLeft:      mmToInches(float64(margins.Left)),
		Scale:           opts.Scale,
		PrintBackground: opts.PrintBackground,
		// Chrome needs a non-empty header template to suppress its default one.
		DisplayHeaderFooter: true,
		HeaderTemplate:      "<span></span>",
		FooterTemplate:      footer,
	}
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}
