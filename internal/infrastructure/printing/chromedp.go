package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

const (
	defaultNetworkIdleWindow = 500 * time.Millisecond
	defaultSettleDelay       = 500 * time.Millisecond
	idlePollInterval         = 50 * time.Millisecond
)

// resourcesReadyJS resolves once web fonts and every <img> have loaded or failed
const resourcesReadyJS = `Promise.all([
  document.fonts ? document.fonts.ready : Promise.resolve(),
  ...Array.from(document.images).map(img => img.complete ? Promise.resolve() :
    new Promise(resolve => { img.addEventListener('load', resolve); img.addEventListener('error', resolve); }))
]).then(() => true)`

// ChromedpConfig contains configuration for the chromedp engine
type ChromedpConfig struct {
	// ExecPath is the Chrome/Chromium binary. Empty lets chromedp locate it.
	ExecPath string
	// RemoteURL is the DevTools websocket URL of an already running browser.
	// If empty, a local process is launched.
	RemoteURL string
	// Headless mode
	Headless bool
	// DisableGPU disables GPU hardware acceleration
	DisableGPU bool
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// ExtraFlags are additional command line switches, e.g. "lang=en-MY"
	ExtraFlags []string
	// NetworkIdleWindow is how long the page must be free of requests to count as idle
	NetworkIdleWindow time.Duration
	// SettleDelay is waited after idle so late style application lands before pagination
	SettleDelay time.Duration
	// Logger for debug output
	Logger *zap.Logger
}

// DefaultChromedpConfig returns the settings used in containers
func DefaultChromedpConfig() *ChromedpConfig {
	return &ChromedpConfig{
		Headless:          true,
		DisableGPU:        true,
		NoSandbox:         true,
		NetworkIdleWindow: defaultNetworkIdleWindow,
		SettleDelay:       defaultSettleDelay,
	}
}

// ChromedpLauncher launches Chrome through the DevTools protocol
type ChromedpLauncher struct {
	config *ChromedpConfig
	logger *zap.Logger
}

// NewChromedpLauncher creates a launcher. A nil config selects DefaultChromedpConfig.
func NewChromedpLauncher(config *ChromedpConfig) *ChromedpLauncher {
	if config == nil {
		config = DefaultChromedpConfig()
	}
	if config.NetworkIdleWindow <= 0 {
		config.NetworkIdleWindow = defaultNetworkIdleWindow
	}
	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpLauncher{config: config, logger: logger}
}

// allocatorOptions builds the command line for a local browser
func (l *ChromedpLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.config.Headless),
		chromedp.Flag("disable-gpu", l.config.DisableGPU),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if l.config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}
	for _, f := range l.config.ExtraFlags {
		name, value, hasValue := strings.Cut(strings.TrimLeft(f, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// Launch starts the browser and waits until it accepts commands or ctx ends
func (l *ChromedpLauncher) Launch(ctx context.Context) (Engine, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if l.config.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), l.config.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			l.logger.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			l.logger.Debug(fmt.Sprintf(format, args...), zap.String("source", "chromedp"))
		}),
	)

	// The first Run allocates the browser; it must not carry a deadline or
	// the browser would die with it.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}

	c := chromedp.FromContext(browserCtx)
	if c == nil || c.Browser == nil {
		browserCancel()
		allocCancel()
		return nil, errors.New("start browser: no browser attached to context")
	}

	e := &chromedpEngine{
		config:        l.config,
		logger:        l.logger,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		done:          make(chan struct{}),
	}
	go e.watch(c.Browser.LostConnection)
	return e, nil
}

// chromedpEngine is one running browser
type chromedpEngine struct {
	config        *ChromedpConfig
	logger        *zap.Logger
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

func (e *chromedpEngine) watch(lost <-chan struct{}) {
	select {
	case <-lost:
	case <-e.browserCtx.Done():
	case <-e.done:
	}
	e.markDone()
}

func (e *chromedpEngine) markDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

func (e *chromedpEngine) Done() <-chan struct{} {
	return e.done
}

func (e *chromedpEngine) Connected() bool {
	select {
	case <-e.done:
		return false
	default:
	}
	return e.browserCtx.Err() == nil
}

// NewPage opens a new tab. Each tab is an isolated target with its own
// document, so concurrent sessions never observe each other.
func (e *chromedpEngine) NewPage(ctx context.Context, viewport Viewport) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(e.browserCtx)

	// As with the browser, the first Run creates the target and is bounded
	// by ctx from the outside.
	created := make(chan error, 1)
	go func() {
		created <- chromedp.Run(tabCtx,
			network.Enable(),
			emulation.SetDeviceMetricsOverride(int64(viewport.Width), int64(viewport.Height), 1, false),
		)
	}()

	select {
	case err := <-created:
		if err != nil {
			tabCancel()
			return nil, err
		}
	case <-ctx.Done():
		tabCancel()
		return nil, ctx.Err()
	}

	return &chromedpPage{
		ctx:         tabCtx,
		cancel:      tabCancel,
		idleWindow:  e.config.NetworkIdleWindow,
		settleDelay: e.config.SettleDelay,
	}, nil
}

// Close shuts the browser down gracefully, then kills the process
func (e *chromedpEngine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		closed := make(chan error, 1)
		go func() { closed <- chromedp.Cancel(e.browserCtx) }()
		select {
		case e.closeErr = <-closed:
		case <-ctx.Done():
			e.closeErr = ctx.Err()
		}
		e.browserCancel()
		e.allocCancel()
		e.markDone()
	})
	if errors.Is(e.closeErr, context.Canceled) {
		return nil
	}
	return e.closeErr
}

// chromedpPage is one tab
type chromedpPage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	idleWindow  time.Duration
	settleDelay time.Duration
}

// bind derives a chromedp context for this tab that also ends with ctx
func (p *chromedpPage) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(p.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// SetContent replaces the document and waits for network idle, loaded
// fonts and images, then the settle delay
func (p *chromedpPage) SetContent(ctx context.Context, html string) error {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var inflight atomic.Int64
	var lastActivity atomic.Int64
	lastActivity.Store(time.Now().UnixNano())

	chromedp.ListenTarget(runCtx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			inflight.Add(1)
			lastActivity.Store(time.Now().UnixNano())
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			inflight.Add(-1)
			lastActivity.Store(time.Now().UnixNano())
		}
	})

	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
	)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		quiet := time.Since(time.Unix(0, lastActivity.Load()))
		if inflight.Load() <= 0 && quiet >= p.idleWindow {
			break
		}
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case <-ticker.C:
		}
	}

	var ready bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(resourcesReadyJS, &ready,
		func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		})); err != nil {
		return err
	}

	if p.settleDelay > 0 {
		timer := time.NewTimer(p.settleDelay)
		defer timer.Stop()
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case <-timer.C:
		}
	}
	return nil
}

// PrintToPDF paginates the current document
func (p *chromedpPage) PrintToPDF(ctx context.Context, params PrintParams) ([]byte, error) {
	runCtx, cancel := p.bind(ctx)
	defer cancel()

	var pdfData []byte
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(params.PrintBackground).
			WithPaperWidth(params.PaperWidth).
			WithPaperHeight(params.PaperHeight).
			WithMarginTop(params.MarginTop).
			WithMarginRight(params.MarginRight).
			WithMarginBottom(params.MarginBottom).
			WithMarginLeft(params.MarginLeft).
			WithScale(params.Scale).
			WithDisplayHeaderFooter(params.DisplayHeaderFooter).
			WithHeaderTemplate(params.HeaderTemplate).
			WithFooterTemplate(params.FooterTemplate).
			Do(ctx)
		if err != nil {
			return err
		}
		pdfData = data
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return pdfData, nil
}

// Close closes the tab and waits for the target to go away
func (p *chromedpPage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Compile-time checks
var (
	_ Launcher = (*ChromedpLauncher)(nil)
	_ Engine   = (*chromedpEngine)(nil)
	_ Page     = (*chromedpPage)(nil)
)

// engineGone reports whether err means the DevTools connection itself was
// lost, as opposed to a single command failing
func engineGone(err error) bool {
	var closed wsutil.ClosedError
	switch {
	case errors.Is(err, chromedp.ErrChannelClosed),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &closed):
		return true
	}
	return false
}
