package printing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// fakeLauncher hands out fakeEngines and counts launches
type fakeLauncher struct {
	mu       sync.Mutex
	delay    time.Duration
	failNext error
	launched atomic.Int64
	engines  []*fakeEngine
	// pageHook customises pages of every new engine
	pageHook func(*fakePage)
}

func (l *fakeLauncher) Launch(ctx context.Context) (Engine, error) {
	l.launched.Add(1)
	if l.delay > 0 {
		select {
		case <-time.After(l.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return nil, err
	}
	e := newFakeEngine()
	e.pageHook = l.pageHook
	l.engines = append(l.engines, e)
	return e, nil
}

func (l *fakeLauncher) engine(i int) *fakeEngine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engines[i]
}

// fakeEngine simulates a browser that can crash on demand
type fakeEngine struct {
	connected  atomic.Bool
	done       chan struct{}
	doneOnce   sync.Once
	closed     atomic.Int64
	pages      atomic.Int64
	openPages  atomic.Int64
	pageHook   func(*fakePage)
	newPageErr error
}

func newFakeEngine() *fakeEngine {
	e := &fakeEngine{done: make(chan struct{})}
	e.connected.Store(true)
	return e
}

// crash drops the connection as a dead browser process would
func (e *fakeEngine) crash() {
	e.connected.Store(false)
	e.doneOnce.Do(func() { close(e.done) })
}

func (e *fakeEngine) NewPage(ctx context.Context, viewport Viewport) (Page, error) {
	if !e.Connected() {
		return nil, errors.New("websocket: close 1006")
	}
	if e.newPageErr != nil {
		return nil, e.newPageErr
	}
	e.pages.Add(1)
	e.openPages.Add(1)
	p := &fakePage{engine: e, viewport: viewport}
	if e.pageHook != nil {
		e.pageHook(p)
	}
	return p, nil
}

func (e *fakeEngine) Connected() bool       { return e.connected.Load() }
func (e *fakeEngine) Done() <-chan struct{} { return e.done }

func (e *fakeEngine) Close(ctx context.Context) error {
	e.closed.Add(1)
	e.crash()
	return nil
}

// fakePage records what it was given and echoes it back as the "PDF"
type fakePage struct {
	engine   *fakeEngine
	viewport Viewport
	mu       sync.Mutex
	content  string
	params   PrintParams
	closed   atomic.Int64
	closeErr error

	// setContent overrides the default load behaviour when set
	setContent func(ctx context.Context, html string) error
	printErr   error
}

func (p *fakePage) SetContent(ctx context.Context, html string) error {
	if p.setContent != nil {
		if err := p.setContent(ctx, html); err != nil {
			return err
		}
	}
	if !p.engine.Connected() {
		return errors.New("websocket: close 1006")
	}
	p.mu.Lock()
	p.content = html
	p.mu.Unlock()
	return nil
}

func (p *fakePage) PrintToPDF(ctx context.Context, params PrintParams) ([]byte, error) {
	if p.printErr != nil {
		return nil, p.printErr
	}
	if !p.engine.Connected() {
		return nil, errors.New("websocket: close 1006")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
	return []byte("%PDF-1.7\n" + p.content + "\n" + params.FooterTemplate), nil
}

func (p *fakePage) Close() error {
	if p.closed.Add(1) == 1 {
		p.engine.openPages.Add(-1)
	}
	return p.closeErr
}
