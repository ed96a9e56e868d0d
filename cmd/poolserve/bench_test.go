package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/vango-dev/poolserve/pkg/content"
	"github.com/vango-dev/poolserve/pkg/server"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{0.5, 5},
		{0.95, 10},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 0.5) != 0 {
		t.Error("percentile(nil) != 0")
	}
}

func TestRunBench(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/site/hello.html", []byte("<h1>hello</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := content.NewFSStore(fs, "/site", content.ResolveOptions{})

	srv, err := server.Run(server.DefaultServerConfig().
		WithAddress("127.0.0.1:0").
		WithThreads(2).
		WithStore(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	<-srv.Ready()
	defer func() {
		srv.Stop()
		_ = srv.Join()
	}()
	if srv.Addr() == nil {
		t.Fatal("server did not bind")
	}

	base := "http://" + srv.Addr().String()
	report := runBench(context.Background(), benchConfig{
		URL:      base + "/hello.html",
		Clients:  3,
		Requests: 5,
		Timeout:  5 * time.Second,
	})

	if report.Requests != 15 || report.Errors != 0 {
		t.Fatalf("report = %+v", report)
	}
	if report.Statuses["200"] != 15 {
		t.Errorf("Statuses = %v, want 15x200", report.Statuses)
	}
	if report.Bytes != 15*uint64(len("<h1>hello</h1>")) {
		t.Errorf("Bytes = %d", report.Bytes)
	}
	if report.LatencyMS.Max < report.LatencyMS.Min {
		t.Errorf("latency = %+v", report.LatencyMS)
	}

	missing := runBench(context.Background(), benchConfig{
		URL:      base + "/nope.html",
		Clients:  1,
		Requests: 2,
		Timeout:  5 * time.Second,
	})
	if missing.Statuses["404"] != 2 {
		t.Errorf("Statuses = %v, want 2x404", missing.Statuses)
	}
}

func TestRunBench_Unreachable(t *testing.T) {
	report := runBench(context.Background(), benchConfig{
		URL:      "http://127.0.0.1:1/x",
		Clients:  1,
		Requests: 2,
		Timeout:  time.Second,
	})
	if report.Errors != 2 || report.Statuses["error"] != 2 {
		t.Errorf("report = %+v", report)
	}

	var buf bytes.Buffer
	writeSummary(&buf, report)
	if !strings.Contains(buf.String(), "No latency samples recorded.") {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	in := benchReport{URL: "http://x", Clients: 2, Requests: 4, Statuses: map[string]uint64{"200": 4}}
	if err := writeJSON(path, in); err != nil {
		t.Fatalf("writeJSON() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out benchReport
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if out.Requests != 4 || out.Statuses["200"] != 4 {
		t.Errorf("round trip = %+v", out)
	}
}
