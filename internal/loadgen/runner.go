package loadgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var pdfMagic = []byte("%PDF")

// Config controls one load run
type Config struct {
	// URL is the render endpoint, e.g. http://localhost:3001/api/pdf/invoice
	URL string
	// Requests is the total number of requests to send
	Requests int
	// Concurrency is the number of workers
	Concurrency int
	// RPS caps the request rate across all workers; 0 means unlimited
	RPS float64
	// Timeout bounds a single request
	Timeout time.Duration
	// Seed feeds the payload generator; 0 picks a random seed
	Seed uint64
}

// Validate checks the run configuration
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Requests <= 0 {
		return errors.New("requests must be positive")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if c.RPS < 0 {
		return errors.New("rps must not be negative")
	}
	return nil
}

// Runner fires render requests and collects outcomes
type Runner struct {
	cfg      Config
	client   *http.Client
	limiter  *rate.Limiter
	payloads *InvoiceFactory
}

// NewRunner creates a runner. A nil client uses one bounded by cfg.Timeout.
func NewRunner(cfg Config, client *http.Client) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Runner{
		cfg:      cfg,
		client:   client,
		limiter:  rate.NewLimiter(limit, max(1, cfg.Concurrency)),
		payloads: NewInvoiceFactory(cfg.Seed),
	}, nil
}

// Run sends cfg.Requests requests and returns the aggregated report.
// Cancelling ctx stops issuing new requests.
func (r *Runner) Run(ctx context.Context) *Report {
	report := newReport()
	jobs := make(chan struct{})

	var wg sync.WaitGroup
	for range r.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				report.record(r.fire(ctx))
			}
		}()
	}

	start := time.Now()
feed:
	for range r.cfg.Requests {
		if err := r.limiter.Wait(ctx); err != nil {
			break
		}
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	report.Elapsed = time.Since(start)
	return report
}

// fire sends one request and classifies the response
func (r *Runner) fire(ctx context.Context) Result {
	body, err := r.payloads.Next()
	if err != nil {
		return Result{Err: fmt.Errorf("build payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return Result{Latency: time.Since(start), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	res := Result{Status: resp.StatusCode, Latency: time.Since(start), Bytes: len(data)}
	switch {
	case err != nil:
		res.Err = fmt.Errorf("read body: %w", err)
	case resp.StatusCode != http.StatusOK:
		res.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
	case !bytes.HasPrefix(data, pdfMagic):
		res.Err = errors.New("response is not a PDF")
	}
	return res
}
