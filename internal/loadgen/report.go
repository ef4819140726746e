package loadgen

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"
)

// Result is the outcome of one request
type Result struct {
	Status  int
	Latency time.Duration
	Bytes   int
	Err     error
}

// Report aggregates request outcomes
type Report struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int
	errors    map[string]int

	Succeeded int
	Failed    int
	Bytes     int64
	Elapsed   time.Duration
}

func newReport() *Report {
	return &Report{
		statuses: make(map[int]int),
		errors:   make(map[string]int),
	}
}

func (r *Report) record(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Status != 0 {
		r.statuses[res.Status]++
	}
	if res.Err != nil {
		r.Failed++
		r.errors[res.Err.Error()]++
		return
	}
	r.Succeeded++
	r.Bytes += int64(res.Bytes)
	r.latencies = append(r.latencies, res.Latency)
}

// Total returns the number of recorded requests
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Succeeded + r.Failed
}

// StatusCodes returns a copy of the status code histogram
func (r *Report) StatusCodes() map[int]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.statuses)
}

// Percentile returns the p-th (0..1) latency of successful requests
func (r *Report) Percentile(p float64) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.latencies)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(r.latencies)
	slices.Sort(sorted)
	return sorted[percentileIndex(n, p)]
}

func percentileIndex(n int, percentile float64) int {
	idx := int(float64(n) * percentile)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Print writes a human-readable summary to w
func (r *Report) Print(w io.Writer) {
	total := r.Total()
	fmt.Fprintf(w, "requests:   %d (ok %d, failed %d) in %s\n", total, r.Succeeded, r.Failed, r.Elapsed.Round(time.Millisecond))
	if r.Elapsed > 0 {
		fmt.Fprintf(w, "throughput: %.2f req/s\n", float64(total)/r.Elapsed.Seconds())
	}
	fmt.Fprintf(w, "latency:    p50 %s  p90 %s  p99 %s  max %s\n",
		r.Percentile(0.50).Round(time.Millisecond),
		r.Percentile(0.90).Round(time.Millisecond),
		r.Percentile(0.99).Round(time.Millisecond),
		r.Percentile(1).Round(time.Millisecond),
	)

	statuses := r.StatusCodes()
	for _, code := range slices.Sorted(maps.Keys(statuses)) {
		fmt.Fprintf(w, "status %d:  %d\n", code, statuses[code])
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range slices.Sorted(maps.Keys(r.errors)) {
		fmt.Fprintf(w, "error:      %s (x%d)\n", msg, r.errors[msg])
	}
}
