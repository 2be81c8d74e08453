package daemon_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/felix-dieterle/mycontracts/internal/api"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/daemon"
	"github.com/felix-dieterle/mycontracts/internal/reconcile"
	"github.com/felix-dieterle/mycontracts/internal/records/sqlite"
	"github.com/felix-dieterle/mycontracts/internal/testsupport"
	"github.com/felix-dieterle/mycontracts/internal/watcher"
)

func newDaemon(t *testing.T, cfg *config.Config, store *sqlite.Store) *daemon.Daemon {
	t.Helper()

	counters := reconcile.NewCounters()
	rec, err := reconcile.New(store, reconcile.SettingsFromConfig(cfg), reconcile.WithMetrics(counters))
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	w, err := watcher.New(rec, cfg.ScanInterval(), nil)
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	d, err := daemon.New(cfg, store, w, counters, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running || status.Watcher.State != watcher.Running {
		t.Fatalf("unexpected status: %#v", status)
	}
	if d.APIAddr() != "" {
		t.Fatalf("expected API disabled, got %q", d.APIAddr())
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestSecondDaemonIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, cfg)
	first := newDaemon(t, cfg, store)
	second := newDaemon(t, cfg, store)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestAPIEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxRetries(3))
	store := testsupport.MustOpenStore(t, cfg)
	// Keep the scheduler quiet so only the manual scan runs.
	cfg.Watcher.ScanIntervalMs = 60_000
	d := newDaemon(t, cfg, store)

	testsupport.AddStoredFile(t, store, "lease")
	testsupport.WriteArtifact(t, cfg.Watcher.WatchDir, "lease_ocr.json", "lease text")
	testsupport.WriteArtifact(t, cfg.Watcher.WatchDir, "orphan_ocr.json", "orphan text")

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected API address")
	}
	base := "http://" + d.APIAddr()

	resp, err := http.Post(base+"/api/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/scan: %v", err)
	}
	var scan api.ScanResponse
	decode(t, resp, &scan)
	// The scheduled first cycle may already have ingested both artifacts.
	if len(scan.Records) != 2 {
		t.Fatalf("expected 2 records, got %#v", scan.Records)
	}

	resp, err = http.Get(base + "/api/records?status=matched")
	if err != nil {
		t.Fatalf("GET /api/records: %v", err)
	}
	var list api.RecordListResponse
	decode(t, resp, &list)
	if len(list.Records) != 1 || !strings.HasSuffix(list.Records[0].Path, "lease_ocr.json") {
		t.Fatalf("unexpected matched records: %#v", list.Records)
	}

	resp, err = http.Get(base + "/api/records?status=bogus")
	if err != nil {
		t.Fatalf("GET /api/records: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	var status api.DaemonStatus
	decode(t, resp, &status)
	if !status.Running || status.Watcher.State != "running" {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.RecordStats["matched"] != 1 || status.RecordStats["pending"] != 1 {
		t.Fatalf("unexpected record stats: %#v", status.RecordStats)
	}
	if status.Counters.Matched != 1 || status.Counters.Pending != 2 {
		t.Fatalf("unexpected counters: %#v", status.Counters)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		"# TYPE mycontracts_ocr_matched_total counter",
		"mycontracts_ocr_matched_total 1\n",
		"mycontracts_ocr_pending_total 2\n",
		"mycontracts_ocr_failed_total 0\n",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}

	resp, err = http.Get(base + "/api/scan")
	if err != nil {
		t.Fatalf("GET /api/scan: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
