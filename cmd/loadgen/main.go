// Package main provides the CLI entry point for the render load generator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfirdausali/wif-fin-sub004/internal/loadgen"
)

// CLI flags
var (
	url         string
	requests    int
	concurrency int
	rps         float64
	timeout     time.Duration
	seed        uint64
)

func init() {
	flag.StringVar(&url, "url", "http://localhost:3001/api/pdf/invoice", "Render endpoint to load")
	flag.IntVar(&requests, "n", 100, "Total number of requests")
	flag.IntVar(&concurrency, "c", 8, "Number of concurrent workers")
	flag.Float64Var(&rps, "rps", 0, "Maximum requests per second (0 = unlimited)")
	flag.DurationVar(&timeout, "timeout", 90*time.Second, "Per-request timeout")
	flag.Uint64Var(&seed, "seed", 0, "Payload generator seed (0 = random)")
}

func main() {
	flag.Parse()

	runner, err := loadgen.NewRunner(loadgen.Config{
		URL:         url,
		Requests:    requests,
		Concurrency: concurrency,
		RPS:         rps,
		Timeout:     timeout,
		Seed:        seed,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Sending %d requests to %s with %d workers\n", requests, url, concurrency)
	report := runner.Run(ctx)
	report.Print(os.Stdout)

	if report.Failed > 0 {
		os.Exit(1)
	}
}
