package printing_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mfirdausali/wif-fin-sub004/internal/application/printing"
	domain "github.com/mfirdausali/wif-fin-sub004/internal/domain/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/domain/shared"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// =============================================================================
// Test doubles
// =============================================================================

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordRender(ctx context.Context, docType, outcome, code string, d time.Duration) {
	m.Called(docType, outcome, code)
}

func (m *MockRecorder) SessionOpened(ctx context.Context) { m.Called() }
func (m *MockRecorder) SessionClosed(ctx context.Context) { m.Called() }

type stubLauncher struct {
	launches atomic.Int64
	engine   atomic.Pointer[stubEngine]
	// loadDelay is applied to every SetContent
	loadDelay time.Duration
}

func (l *stubLauncher) Launch(ctx context.Context) (infra.Engine, error) {
	l.launches.Add(1)
	e := &stubEngine{done: make(chan struct{}), loadDelay: l.loadDelay}
	e.up.Store(true)
	l.engine.Store(e)
	return e, nil
}

type stubEngine struct {
	up        atomic.Bool
	done      chan struct{}
	once      sync.Once
	open      atomic.Int64
	peak      atomic.Int64
	loadDelay time.Duration
}

func (e *stubEngine) kill() {
	e.up.Store(false)
	e.once.Do(func() { close(e.done) })
}

func (e *stubEngine) NewPage(ctx context.Context, _ infra.Viewport) (infra.Page, error) {
	if !e.up.Load() {
		return nil, errors.New("browser closed")
	}
	n := e.open.Add(1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return &stubPage{engine: e}, nil
}

func (e *stubEngine) Connected() bool                 { return e.up.Load() }
func (e *stubEngine) Done() <-chan struct{}           { return e.done }
func (e *stubEngine) Close(ctx context.Context) error { e.kill(); return nil }

type stubPage struct {
	engine *stubEngine
	html   string
	closed atomic.Bool
}

func (p *stubPage) SetContent(ctx context.Context, html string) error {
	if p.engine.loadDelay > 0 {
		select {
		case <-time.After(p.engine.loadDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !p.engine.up.Load() {
		return errors.New("websocket: close 1006")
	}
	p.html = html
	return nil
}

func (p *stubPage) PrintToPDF(ctx context.Context, params infra.PrintParams) ([]byte, error) {
	if !p.engine.up.Load() {
		return nil, errors.New("websocket: close 1006")
	}
	return []byte("%PDF-1.7\n" + p.html + "\n" + params.FooterTemplate), nil
}

func (p *stubPage) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.engine.open.Add(-1)
	}
	return nil
}

func newService(t *testing.T, launcher *stubLauncher, cfg printing.ServiceConfig, recorder printing.RenderRecorder) (*printing.RenderService, *infra.EngineSupervisor) {
	t.Helper()
	registry, err := infra.NewTemplateRegistry(infra.NewTemplateEngine())
	require.NoError(t, err)
	supervisor := infra.NewEngineSupervisor(launcher, nil)
	return printing.NewRenderService(supervisor, registry, infra.NewFooterComposer(), cfg, recorder, nil), supervisor
}

func company() domain.CompanyInfo {
	return domain.CompanyInfo{Name: "WIF Japan Sdn Bhd", RegistrationNo: "202301012345", RegisteredOffice: "Kuala Lumpur"}
}

func invoice(number string) *domain.InvoiceData {
	return &domain.InvoiceData{
		DocumentNumber: number,
		Items: []domain.LineItem{{
			Description: "Service A",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(100),
			Amount:      decimal.NewFromInt(200),
		}},
		TaxRate:  decimal.NewFromInt(6),
		Currency: "MYR",
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestRenderService_RenderInvoice(t *testing.T) {
	launcher := &stubLauncher{}
	recorder := new(MockRecorder)
	recorder.On("SessionOpened").Once()
	recorder.On("SessionClosed").Once()
	recorder.On("RecordRender", "invoice", printing.OutcomeSuccess, "").Once()

	svc, _ := newService(t, launcher, printing.ServiceConfig{}, recorder)

	res, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeInvoice,
		Document:     invoice("INV-001"),
		CompanyInfo:  company(),
		PrinterInfo:  &domain.PrinterInfo{UserName: "Aina", PrintTimestamp: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	pdf := string(res.PDF)
	assert.True(t, strings.HasPrefix(pdf, "%PDF"))
	assert.Contains(t, pdf, "MYR 200.00")
	assert.Contains(t, pdf, "MYR 12.00")
	assert.Contains(t, pdf, "MYR 212.00")
	assert.Contains(t, pdf, "Printed by Aina on 02 Jan 2026 at 11:04 AM (UTC+8)")
	assert.Equal(t, "invoice-INV-001.pdf", res.Filename)
	assert.Equal(t, uint64(1), res.EngineGeneration)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, int64(0), launcher.engine.Load().open.Load())
	recorder.AssertExpectations(t)
}

func TestRenderService_UnknownTypeTouchesNoEngine(t *testing.T) {
	launcher := &stubLauncher{}
	svc, supervisor := newService(t, launcher, printing.ServiceConfig{}, nil)

	_, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocType("quotation"),
		Document:     invoice("Q-1"),
	})
	require.Error(t, err)
	assert.True(t, infra.IsRenderErrorCode(err, infra.ErrCodeUnknownDocumentType))
	assert.Equal(t, int64(0), supervisor.LaunchCount())
}

func TestRenderService_MissingPayload(t *testing.T) {
	launcher := &stubLauncher{}
	recorder := new(MockRecorder)
	recorder.On("RecordRender", "receipt", printing.OutcomeFailure, "MISSING_PAYLOAD").Once()
	svc, supervisor := newService(t, launcher, printing.ServiceConfig{}, recorder)

	start := time.Now()
	_, err := svc.Render(context.Background(), printing.RenderRequest{DocumentType: domain.DocTypeReceipt})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrMissingPayload))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, int64(0), supervisor.LaunchCount())
	recorder.AssertExpectations(t)
}

func TestRenderService_ValidationFailure(t *testing.T) {
	launcher := &stubLauncher{}
	svc, supervisor := newService(t, launcher, printing.ServiceConfig{}, nil)

	_, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeInvoice,
		Document:     &domain.InvoiceData{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrValidation))
	assert.Equal(t, int64(0), supervisor.LaunchCount())

	_, err = svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeReceipt,
		Document:     invoice("INV-1"),
	})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestRenderService_IdempotentOutput(t *testing.T) {
	svc, _ := newService(t, &stubLauncher{}, printing.ServiceConfig{}, nil)
	req := func() printing.RenderRequest {
		return printing.RenderRequest{
			DocumentType: domain.DocTypeInvoice,
			Document:     invoice("INV-009"),
			CompanyInfo:  company(),
		}
	}

	a, err := svc.Render(context.Background(), req())
	require.NoError(t, err)
	b, err := svc.Render(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, a.PDF, b.PDF)
}

func TestRenderService_ConcurrentRendersNoCrossTalk(t *testing.T) {
	launcher := &stubLauncher{loadDelay: 10 * time.Millisecond}
	svc, _ := newService(t, launcher, printing.ServiceConfig{}, nil)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*printing.RenderResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Render(context.Background(), printing.RenderRequest{
				DocumentType: domain.DocTypeInvoice,
				Document:     invoice(fmt.Sprintf("INV-%03d", i)),
				CompanyInfo:  company(),
			})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), launcher.launches.Load())
	assert.Greater(t, launcher.engine.Load().peak.Load(), int64(1), "sessions should overlap, not serialize")
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, fmt.Sprintf("invoice-INV-%03d.pdf", i), res.Filename)
		assert.Contains(t, string(res.PDF), fmt.Sprintf("INV-%03d", i))
		for j := range results {
			if j != i {
				assert.NotContains(t, string(res.PDF), fmt.Sprintf("INV-%03d", j))
			}
		}
	}
}

func TestRenderService_MaxConcurrentSessions(t *testing.T) {
	launcher := &stubLauncher{loadDelay: 20 * time.Millisecond}
	svc, _ := newService(t, launcher, printing.ServiceConfig{MaxConcurrentSessions: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Render(context.Background(), printing.RenderRequest{
				DocumentType: domain.DocTypeInvoice,
				Document:     invoice(fmt.Sprintf("INV-%d", i)),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, launcher.engine.Load().peak.Load(), int64(2))
}

func TestRenderService_CrashRecovery(t *testing.T) {
	launcher := &stubLauncher{loadDelay: 200 * time.Millisecond}
	svc, supervisor := newService(t, launcher, printing.ServiceConfig{RenderTimeout: 5 * time.Second}, nil)

	// Start the engine.
	_, err := supervisor.Acquire(context.Background())
	require.NoError(t, err)
	first := launcher.engine.Load()

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Render(context.Background(), printing.RenderRequest{
			DocumentType: domain.DocTypeInvoice,
			Document:     invoice("INV-CRASH"),
		})
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	first.kill()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, infra.IsRenderErrorCode(err, infra.ErrCodeEngineDisconnected))
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight render hung after engine crash")
	}

	res, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeInvoice,
		Document:     invoice("INV-AFTER"),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.EngineGeneration)
	assert.Equal(t, int64(2), launcher.launches.Load())
}

func TestRenderService_RenderTimeout(t *testing.T) {
	launcher := &stubLauncher{loadDelay: time.Second}
	svc, _ := newService(t, launcher, printing.ServiceConfig{RenderTimeout: 30 * time.Millisecond}, nil)

	_, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeInvoice,
		Document:     invoice("INV-SLOW"),
	})
	require.Error(t, err)
	assert.True(t, infra.IsRenderErrorCode(err, infra.ErrCodeRenderTimeout))
	assert.Equal(t, int64(0), launcher.engine.Load().open.Load(), "timed out session must be disposed")
}

func TestRenderService_Shutdown(t *testing.T) {
	launcher := &stubLauncher{loadDelay: 100 * time.Millisecond}
	svc, supervisor := newService(t, launcher, printing.ServiceConfig{}, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Render(context.Background(), printing.RenderRequest{
			DocumentType: domain.DocTypeInvoice,
			Document:     invoice("INV-INFLIGHT"),
		})
		errCh <- err
	}()
	time.Sleep(30 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	assert.NoError(t, <-errCh, "in-flight render completes before the engine closes")
	assert.True(t, svc.Draining())
	assert.Equal(t, infra.EngineStateClosed, supervisor.Stats().State)

	_, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeInvoice,
		Document:     invoice("INV-LATE"),
	})
	assert.True(t, errors.Is(err, shared.ErrShuttingDown))
}

func TestRenderService_Preview(t *testing.T) {
	launcher := &stubLauncher{}
	svc, supervisor := newService(t, launcher, printing.ServiceConfig{}, nil)

	res, err := svc.Preview(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeStatementOfPayment,
		Document:     &domain.StatementOfPaymentData{DocumentNumber: "SOP-3"},
		CompanyInfo:  company(),
	})
	require.NoError(t, err)
	assert.Contains(t, res.HTML, "SOP-3")
	assert.Contains(t, res.Footer, "pageNumber")
	assert.Equal(t, int64(0), supervisor.LaunchCount())
}

func TestRenderService_DocumentTypes(t *testing.T) {
	svc, _ := newService(t, &stubLauncher{}, printing.ServiceConfig{}, nil)

	types := svc.DocumentTypes()
	require.Len(t, types, 4)
	assert.Equal(t, "payment-voucher", types[2].Slug)
	assert.Equal(t, "voucher", types[2].PayloadKey)
	assert.Equal(t, infra.EngineStateIdle, svc.EngineStats().State)
}

func TestArtifactFilename(t *testing.T) {
	assert.Equal(t, "payment-voucher-PV-2026-001.pdf", printing.ArtifactFilename(domain.DocTypePaymentVoucher, "PV-2026-001"))
	assert.Equal(t, "receipt-RCP_1_.._x.pdf", printing.ArtifactFilename(domain.DocTypeReceipt, "RCP/1/../x"))
	assert.Equal(t, "invoice-document.pdf", printing.ArtifactFilename(domain.DocTypeInvoice, ""))
}

func TestRenderService_RenderSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	svc, _ := newService(t, &stubLauncher{}, printing.ServiceConfig{}, nil)
	res, err := svc.Render(context.Background(), printing.RenderRequest{
		DocumentType: domain.DocTypeInvoice,
		Document:     invoice("INV-007"),
		CompanyInfo:  company(),
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "pdf.render", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "invoice", attrs["doc_type"].AsString())
	assert.Equal(t, "INV-007", attrs["document_number"].AsString())
	assert.Equal(t, int64(len(res.PDF)), attrs["pdf_bytes"].AsInt64())

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "session.opened", span.Events()[0].Name)
}
