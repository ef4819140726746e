package printing

import (
	"context"
	"sync"
	"time"

	domain "github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Render outcomes reported to RenderRecorder
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RenderRecorder receives per-render measurements
type RenderRecorder interface {
	RecordRender(ctx context.Context, docType string, outcome string, code string, d time.Duration)
	SessionOpened(ctx context.Context)
	SessionClosed(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) RecordRender(context.Context, string, string, string, time.Duration) {}
func (nopRecorder) SessionOpened(context.Context)                                       {}
func (nopRecorder) SessionClosed(context.Context)                                       {}

// ServiceConfig tunes the render service
type ServiceConfig struct {
	// RenderTimeout bounds markup load and settle per request
	RenderTimeout time.Duration
	// MaxConcurrentSessions caps open pages on the shared engine; 0 means unbounded
	MaxConcurrentSessions int64
	// Session configures each rendering context
	Session infra.SessionConfig
}

// RenderService turns document records into PDF artifacts using the shared
// engine. It validates and generates markup before touching the engine,
// and disposes every session it opens.
type RenderService struct {
	supervisor *infra.EngineSupervisor
	registry   *infra.TemplateRegistry
	footer     *infra.FooterComposer
	cfg        ServiceConfig
	sessions   *semaphore.Weighted
	recorder   RenderRecorder
	logger     *zap.Logger

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

// NewRenderService creates a new RenderService
func NewRenderService(
	supervisor *infra.EngineSupervisor,
	registry *infra.TemplateRegistry,
	footer *infra.FooterComposer,
	cfg ServiceConfig,
	recorder RenderRecorder,
	logger *zap.Logger,
) *RenderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if footer == nil {
		footer = infra.NewFooterComposer()
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = logger
	}
	s := &RenderService{
		supervisor: supervisor,
		registry:   registry,
		footer:     footer,
		cfg:        cfg,
		recorder:   recorder,
		logger:     logger,
	}
	if cfg.MaxConcurrentSessions > 0 {
		s.sessions = semaphore.NewWeighted(cfg.MaxConcurrentSessions)
	}
	return s
}

// DocumentTypes lists the supported document types
func (s *RenderService) DocumentTypes() []DocumentTypeInfo {
	types := domain.AllDocTypes()
	infos := make([]DocumentTypeInfo, 0, len(types))
	for _, dt := range types {
		infos = append(infos, DocumentTypeInfo{
			Type:        dt.String(),
			Slug:        dt.Slug(),
			PayloadKey:  dt.PayloadKey(),
			DisplayName: dt.DisplayName(),
		})
	}
	return infos
}

// EngineStats reports the shared engine state without launching it
func (s *RenderService) EngineStats() infra.EngineStats {
	return s.supervisor.Stats()
}

// Render produces the PDF for req
func (s *RenderService) Render(ctx context.Context, req RenderRequest) (result *RenderResult, err error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.inflight.Done()

	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "pdf", "render",
		telemetry.WithAttribute("doc_type", req.DocumentType.String()))
	defer span.End()

	logger := s.logger.With(zap.String("doc_type", req.DocumentType.String()))
	defer func() {
		code := ""
		outcome := OutcomeSuccess
		if err != nil {
			outcome = OutcomeFailure
			code = errorCode(err)
			telemetry.RecordError(span, err)
			logger.Warn("render failed",
				zap.String("code", code),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err))
		}
		s.recorder.RecordRender(ctx, req.DocumentType.String(), outcome, code, time.Since(start))
	}()

	markup, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	number := req.Document.Number()
	logger = logger.With(zap.String("document_number", number))
	footer := s.footer.Compose(req.CompanyInfo, req.PrinterInfo)

	pageOpts := domain.DefaultPageOptions()
	if req.PageOptions != nil {
		pageOpts = *req.PageOptions
	}

	if s.sessions != nil {
		if err := s.sessions.Acquire(ctx, 1); err != nil {
			return nil, infra.NewRenderError(infra.ErrCodeRenderTimeout, "waiting for a free render session", err)
		}
		defer s.sessions.Release(1)
	}

	handle, err := s.supervisor.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttribute(span, "engine_generation", int64(handle.Generation()))

	session, err := infra.OpenSession(ctx, s.supervisor, handle, s.cfg.Session)
	if err != nil {
		return nil, err
	}
	s.recorder.SessionOpened(ctx)
	telemetry.AddEvent(span, "session.opened", "session_id", session.ID())
	defer func() {
		session.Dispose()
		s.recorder.SessionClosed(ctx)
	}()

	var pdf []byte
	telemetry.WithDocTypeLabels(ctx, req.DocumentType.String(), func(ctx context.Context) {
		if err = session.RenderMarkup(ctx, markup, s.cfg.RenderTimeout); err != nil {
			return
		}
		pdf, err = session.ProducePDF(ctx, footer, pageOpts)
	})
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	telemetry.SetAttributes(span, "document_number", number, "pdf_bytes", len(pdf))
	telemetry.SetOK(span)
	logger.Info("document rendered",
		zap.String("session_id", session.ID()),
		zap.Uint64("engine_generation", handle.Generation()),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", duration))

	return &RenderResult{
		PDF:              pdf,
		Filename:         ArtifactFilename(req.DocumentType, number),
		DocumentNumber:   number,
		EngineGeneration: handle.Generation(),
		SessionID:        session.ID(),
		Duration:         duration,
	}, nil
}

// Preview returns the markup Render would paginate, without the engine
func (s *RenderService) Preview(ctx context.Context, req RenderRequest) (*PreviewResult, error) {
	_, span := telemetry.StartServiceSpan(ctx, "pdf", "preview",
		telemetry.WithAttribute("doc_type", req.DocumentType.String()))
	defer span.End()

	markup, err := s.prepare(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &PreviewResult{
		HTML:           markup,
		Footer:         s.footer.Compose(req.CompanyInfo, req.PrinterInfo),
		DocumentNumber: req.Document.Number(),
	}, nil
}

// prepare resolves the template, validates the record and generates markup.
// Nothing here touches the engine.
func (s *RenderService) prepare(req RenderRequest) (string, error) {
	tmpl, err := s.registry.Resolve(req.DocumentType)
	if err != nil {
		return "", err
	}
	if req.Document == nil {
		return "", shared.NewDomainError(shared.ErrMissingPayload.Code,
			"missing "+req.DocumentType.PayloadKey()+" data")
	}
	if req.Document.DocType() != req.DocumentType {
		return "", shared.NewDomainError(shared.ErrValidation.Code,
			"payload is a "+req.Document.DocType().String()+", not a "+req.DocumentType.String())
	}
	if err := req.Document.Validate(); err != nil {
		return "", err
	}
	return tmpl(req.Document, req.CompanyInfo)
}

// enter registers an in-flight render unless the service is draining
func (s *RenderService) enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return shared.ErrShuttingDown
	}
	s.inflight.Add(1)
	return nil
}

// Draining reports whether Shutdown has begun
func (s *RenderService) Draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draining
}

// Shutdown rejects new renders, waits for in-flight ones until ctx ends,
// then closes the engine
func (s *RenderService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("in-flight renders finished")
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with renders in flight")
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return s.supervisor.Close(closeCtx)
}

// errorCode extracts the typed code carried by err
func errorCode(err error) string {
	if code := infra.RenderErrorCode(err); code != "" {
		return code
	}
	if code := shared.CodeOf(err); code != "" {
		return code
	}
	return infra.ErrCodeRenderFailed
}
