package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

type benchConfig struct {
	URL        string
	Clients    int
	Requests   int
	Timeout    time.Duration
	JSONOutput string
}

type benchCounters struct {
	requests atomic.Uint64
	bytes    atomic.Uint64
	errors   atomic.Uint64
}

type benchReport struct {
	URL        string            `json:"url"`
	Clients    int               `json:"clients"`
	Requests   uint64            `json:"requests"`
	Errors     uint64            `json:"errors"`
	Bytes      uint64            `json:"bytes"`
	DurationMS float64           `json:"duration_ms"`
	PerSecond  float64           `json:"requests_per_sec"`
	Statuses   map[string]uint64 `json:"statuses"`
	LatencyMS  latencyInfo       `json:"latency_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

func benchCmd() *cobra.Command {
	cfg := benchConfig{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load a running server with concurrent GET requests",
		Long: `Issue GET requests against a running poolserve from several concurrent
clients and report duration, throughput, latency and status counts.

Examples:
  poolserve bench
  poolserve bench --url=http://127.0.0.1:7878/index.html --clients=50 --requests=1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Clients < 1 || cfg.Requests < 1 {
				return fmt.Errorf("clients and requests must be at least 1")
			}
			report := runBench(cmd.Context(), cfg)
			writeSummary(cmd.OutOrStdout(), report)
			if cfg.JSONOutput != "" {
				return writeJSON(cfg.JSONOutput, report)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.URL, "url", "http://127.0.0.1:7878/hello.html", "URL to request")
	cmd.Flags().IntVar(&cfg.Clients, "clients", 10, "Number of concurrent clients")
	cmd.Flags().IntVar(&cfg.Requests, "requests", 10000, "Requests per client")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Per-request timeout")
	cmd.Flags().StringVar(&cfg.JSONOutput, "json", "", "Write a JSON report to this path (- for stdout)")

	return cmd
}

func runBench(ctx context.Context, cfg benchConfig) benchReport {
	if ctx == nil {
		ctx = context.Background()
	}

	// The server closes every connection after one response.
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &http.Transport{DisableKeepAlives: true},
	}

	var (
		counters  benchCounters
		mu        sync.Mutex
		statuses  = map[string]uint64{}
		latencies = make([]time.Duration, 0, cfg.Clients*cfg.Requests)
		wg        sync.WaitGroup
	)

	start := time.Now()
	for c := 0; c < cfg.Clients; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, cfg.Requests)
			localStatus := map[string]uint64{}

			for i := 0; i < cfg.Requests; i++ {
				if ctx.Err() != nil {
					break
				}
				status, n, d, err := fetch(ctx, client, cfg.URL)
				counters.requests.Add(1)
				if err != nil {
					counters.errors.Add(1)
					localStatus["error"]++
					continue
				}
				counters.bytes.Add(uint64(n))
				localStatus[strconv.Itoa(status)]++
				local = append(local, d)
			}

			mu.Lock()
			latencies = append(latencies, local...)
			for k, v := range localStatus {
				statuses[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	report := benchReport{
		URL:        cfg.URL,
		Clients:    cfg.Clients,
		Requests:   counters.requests.Load(),
		Errors:     counters.errors.Load(),
		Bytes:      counters.bytes.Load(),
		DurationMS: ms(elapsed),
		Statuses:   statuses,
	}
	if elapsed > 0 {
		report.PerSecond = float64(report.Requests) / elapsed.Seconds()
	}
	if len(latencies) > 0 {
		report.LatencyMS = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}
	return report
}

func fetch(ctx context.Context, client *http.Client, url string) (int, int64, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, 0, 0, err
	}
	return resp.StatusCode, n, time.Since(start), nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== poolserve bench ===")
	fmt.Fprintf(w, "URL: %s\n", report.URL)
	fmt.Fprintf(w, "Clients: %d\n", report.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.DurationMS*float64(time.Millisecond)).Round(time.Millisecond))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total requests: %d\n", report.Requests)
	fmt.Fprintf(w, "Throughput: %.1f requests/s\n", report.PerSecond)
	fmt.Fprintf(w, "Bytes read: %d\n", report.Bytes)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors)
	fmt.Fprintln(w)

	keys := make([]string, 0, len(report.Statuses))
	for k := range report.Statuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Statuses:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, report.Statuses[k])
	}
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
		return
	}
	fmt.Fprintln(w, "Latency:")
	fmt.Fprintf(w, "  min: %.2f ms\n", report.LatencyMS.Min)
	fmt.Fprintf(w, "  p50: %.2f ms\n", report.LatencyMS.P50)
	fmt.Fprintf(w, "  p95: %.2f ms\n", report.LatencyMS.P95)
	fmt.Fprintf(w, "  p99: %.2f ms\n", report.LatencyMS.P99)
	fmt.Fprintf(w, "  max: %.2f ms\n", report.LatencyMS.Max)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
