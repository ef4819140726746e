package handler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	printingapp "github.com/mfirdausali/wif-fin-sub004/internal/application/printing"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/middleware"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/router"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// fakeLauncher hands out in-memory engines whose PDFs embed the loaded
// markup, so tests can assert on rendered content
type fakeLauncher struct {
	launches  atomic.Int64
	failWith  error
	mu        sync.Mutex
	engines   []*fakeEngine
	printFail error
}

func (l *fakeLauncher) Launch(context.Context) (infra.Engine, error) {
	l.launches.Add(1)
	if l.failWith != nil {
		return nil, l.failWith
	}
	e := &fakeEngine{done: make(chan struct{}), printFail: l.printFail}
	e.up.Store(true)
	l.mu.Lock()
	l.engines = append(l.engines, e)
	l.mu.Unlock()
	return e, nil
}

type fakeEngine struct {
	up        atomic.Bool
	done      chan struct{}
	once      sync.Once
	printFail error
}

func (e *fakeEngine) NewPage(context.Context, infra.Viewport) (infra.Page, error) {
	if !e.up.Load() {
		return nil, errors.New("browser closed")
	}
	return &fakePage{engine: e}, nil
}

func (e *fakeEngine) Connected() bool       { return e.up.Load() }
func (e *fakeEngine) Done() <-chan struct{} { return e.done }
func (e *fakeEngine) Close(context.Context) error {
	e.up.Store(false)
	e.once.Do(func() { close(e.done) })
	return nil
}

type fakePage struct {
	engine *fakeEngine
	html   string
}

func (p *fakePage) SetContent(_ context.Context, html string) error {
	p.html = html
	return nil
}

func (p *fakePage) PrintToPDF(_ context.Context, params infra.PrintParams) ([]byte, error) {
	if p.engine.printFail != nil {
		return nil, p.engine.printFail
	}
	return []byte("%PDF-1.7\n" + p.html + "\n" + params.FooterTemplate), nil
}

func (p *fakePage) Close() error { return nil }

type testServer struct {
	engine     *gin.Engine
	supervisor *infra.EngineSupervisor
	service    *printingapp.RenderService
	launcher   *fakeLauncher
}

func newTestServer(t *testing.T, launcher *fakeLauncher) *testServer {
	t.Helper()
	if launcher == nil {
		launcher = &fakeLauncher{}
	}
	registry, err := infra.NewTemplateRegistry(infra.NewTemplateEngine())
	require.NoError(t, err)
	supervisor := infra.NewEngineSupervisor(launcher, nil)
	service := printingapp.NewRenderService(supervisor, registry, infra.NewFooterComposer(),
		printingapp.ServiceConfig{}, nil, nil)
	t.Cleanup(func() { _ = supervisor.Close(context.Background()) })

	engine := gin.New()
	engine.Use(middleware.RequestID())
	system := NewSystemHandler("pdf-service", "1.0.0", service)
	engine.GET("/health", system.Health)
	router.NewRouter(engine).Register(SystemRoutes(system)).Setup()
	router.NewRouter(engine, router.WithAPIVersion("")).Register(PDFRoutes(NewPDFHandler(service))).Setup()

	return &testServer{engine: engine, supervisor: supervisor, service: service, launcher: launcher}
}
