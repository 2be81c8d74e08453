package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/artifact"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/reconcile"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/records/sqlite"
	"github.com/felix-dieterle/mycontracts/internal/testsupport"
)

type harness struct {
	cfg      *config.Config
	store    *sqlite.Store
	clock    *testsupport.Clock
	counters *reconcile.Counters
	rec      *reconcile.Reconciler
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := os.MkdirAll(cfg.Watcher.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewClock()
	counters := reconcile.NewCounters()
	r, err := reconcile.New(store, reconcile.SettingsFromConfig(cfg),
		reconcile.WithClock(clock.Now),
		reconcile.WithMetrics(counters),
	)
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	return &harness{cfg: cfg, store: store, clock: clock, counters: counters, rec: r}
}

func (h *harness) cycle(t *testing.T) reconcile.CycleReport {
	t.Helper()
	report, err := h.rec.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	return report
}

func TestImmediateMatchInDiscoveringCycle(t *testing.T) {
	h := newHarness(t)
	file := testsupport.AddStoredFile(t, h.store, "contract1.pdf")
	path := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "contract1_ocr.json", `{"text":"hello"}`)

	report := h.cycle(t)
	if report.Discovered != 1 || report.Matched != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec := testsupport.MustFindByPath(t, h.store, path)
	if rec.Status != records.StatusMatched || rec.MatchedFileID == nil || *rec.MatchedFileID != file.ID {
		t.Fatalf("expected matched record, got %#v", rec)
	}
	if rec.RetryCount != 1 || rec.ProcessedAt == nil || rec.LastAttempt == nil {
		t.Fatalf("unexpected bookkeeping: %#v", rec)
	}
	if rec.RawContent != `{"text":"hello"}` || len(rec.Checksum) != 64 {
		t.Fatalf("unexpected payload/checksum: %#v", rec)
	}

	snap := h.counters.Snapshot()
	if snap.Pending != 1 || snap.Matched != 1 || snap.Retried != 0 || snap.Failed != 0 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
}

func TestDeferredMatchAfterBackoff(t *testing.T) {
	h := newHarness(t)
	path := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "willmatch_ocr.json", "{}")

	h.cycle(t)
	rec := testsupport.MustFindByPath(t, h.store, path)
	if rec.Status != records.StatusPending || rec.RetryCount != 1 {
		t.Fatalf("expected pending after first cycle, got %#v", rec)
	}

	file := testsupport.AddStoredFile(t, h.store, "willmatch.pdf")

	h.clock.Advance(time.Second)
	if report := h.cycle(t); report.Skipped != 1 || report.Matched != 0 {
		t.Fatalf("expected record to be skipped inside backoff, got %+v", report)
	}

	h.clock.Advance(5 * time.Second)
	if report := h.cycle(t); report.Matched != 1 {
		t.Fatalf("expected match after backoff, got %+v", report)
	}
	rec = testsupport.MustFindByPath(t, h.store, path)
	if rec.Status != records.StatusMatched || *rec.MatchedFileID != file.ID || rec.RetryCount != 2 {
		t.Fatalf("unexpected record: %#v", rec)
	}
}

func TestUnmatchedFailsAfterMaxRetries(t *testing.T) {
	h := newHarness(t, testsupport.WithMaxRetries(5))
	path := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "orphan_ocr.json", "{}")

	for cycle := 1; cycle <= 5; cycle++ {
		h.cycle(t)
		rec := testsupport.MustFindByPath(t, h.store, path)
		if rec.RetryCount != cycle {
			t.Fatalf("cycle %d: retry count %d", cycle, rec.RetryCount)
		}
		wantStatus := records.StatusPending
		if cycle == 5 {
			wantStatus = records.StatusFailed
		}
		if rec.Status != wantStatus {
			t.Fatalf("cycle %d: status %s want %s", cycle, rec.Status, wantStatus)
		}
		h.clock.Advance(h.cfg.RetryBackoff())
	}

	// A failed record is never revisited, even if its file shows up later.
	testsupport.AddStoredFile(t, h.store, "orphan.pdf")
	report := h.cycle(t)
	if report.Changed() {
		t.Fatalf("expected no changes after failure, got %+v", report)
	}
	rec := testsupport.MustFindByPath(t, h.store, path)
	if rec.Status != records.StatusFailed || rec.RetryCount != 5 {
		t.Fatalf("failed record was revisited: %#v", rec)
	}

	snap := h.counters.Snapshot()
	if snap.Pending != 1 || snap.Retried != 4 || snap.Failed != 1 || snap.Matched != 0 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
}

func TestRescanIsIdempotent(t *testing.T) {
	h := newHarness(t)
	testsupport.AddStoredFile(t, h.store, "a.pdf")
	testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "a_ocr.json", "{}")
	testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "b_ocr.json", "{}")

	h.cycle(t)
	before, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	report := h.cycle(t)
	if report.Changed() {
		t.Fatalf("second scan changed state: %+v", report)
	}
	after, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("record count changed: %d -> %d", len(before), len(after))
	}
	for i := range after {
		if after[i].Status != before[i].Status || after[i].RetryCount != before[i].RetryCount {
			t.Fatalf("record %d changed: %#v -> %#v", after[i].ID, before[i], after[i])
		}
	}
}

func TestBackoffAdvancesOnlyAfterWindow(t *testing.T) {
	h := newHarness(t, testsupport.WithBackoffMs(1000))
	path := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "slow_ocr.json", "{}")

	h.cycle(t)
	h.clock.Advance(500 * time.Millisecond)
	h.cycle(t)
	if rec := testsupport.MustFindByPath(t, h.store, path); rec.RetryCount != 1 {
		t.Fatalf("retry count advanced inside backoff: %d", rec.RetryCount)
	}

	h.clock.Advance(600 * time.Millisecond)
	h.cycle(t)
	h.clock.Advance(1100 * time.Millisecond)
	h.cycle(t)
	if rec := testsupport.MustFindByPath(t, h.store, path); rec.RetryCount != 3 {
		t.Fatalf("expected two more attempts after backoff, got %d", rec.RetryCount)
	}
}

func TestConcurrentCyclesCreateOneRecordPerPath(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"a_ocr.json", "b_ocr.json", "c_ocr.json"} {
		testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, name, name)
	}

	settings := reconcile.SettingsFromConfig(h.cfg)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		// Half the reconcilers skip the scan lock so only the store's
		// uniqueness constraint separates them.
		s := settings
		if i%2 == 1 {
			s.ScanLockPath = ""
		}
		r, err := reconcile.New(h.store, s, reconcile.WithClock(h.clock.Now))
		if err != nil {
			t.Fatalf("reconcile.New: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Cycle(context.Background()); err != nil {
				t.Errorf("Cycle: %v", err)
			}
		}()
	}
	wg.Wait()

	all, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
}

func TestMissingWatchDirAbandonsCycle(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "x_ocr.json", "{}")
	if err := os.RemoveAll(h.cfg.Watcher.WatchDir); err != nil {
		t.Fatalf("remove watch dir: %v", err)
	}

	if _, err := h.rec.Cycle(context.Background()); err == nil {
		t.Fatal("expected cycle error for missing watch directory")
	}
	all, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no records, got %d", len(all))
	}
}

func TestUnreadableArtifactDoesNotBlockOthers(t *testing.T) {
	h := newHarness(t)
	bad := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "bad_ocr.json", "{}")
	good := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "good_ocr.json", "{}")

	load := func(path string) (artifact.Loaded, error) {
		if path == bad {
			return artifact.Loaded{}, fmt.Errorf("read artifact %s: %w", path, os.ErrPermission)
		}
		return artifact.Load(path)
	}
	r, err := reconcile.New(h.store, reconcile.SettingsFromConfig(h.cfg),
		reconcile.WithClock(h.clock.Now),
		reconcile.WithLoader(load),
	)
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}

	report, err := r.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if report.Errors != 1 || report.Discovered != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	testsupport.MustFindByPath(t, h.store, good)
	if rec, _ := h.store.FindByPath(context.Background(), bad); rec != nil {
		t.Fatalf("unreadable artifact should not be recorded: %#v", rec)
	}
}

func TestDiscoveryLoadsInWorkerSizedBatches(t *testing.T) {
	h := newHarness(t)
	h.cfg.Watcher.LoadWorkers = 2
	names := []string{"a_ocr.json", "b_ocr.json", "c_ocr.json", "d_ocr.json", "e_ocr.json"}
	paths := make([]string, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		paths[i] = testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, name, name)
		index[paths[i]] = i
	}

	var (
		mu          sync.Mutex
		insertedAt  = make(map[int]int, len(names))
		loadFailure error
	)
	load := func(path string) (artifact.Loaded, error) {
		existing, err := h.store.List(context.Background())
		mu.Lock()
		if err != nil && loadFailure == nil {
			loadFailure = err
		}
		insertedAt[index[path]] = len(existing)
		mu.Unlock()
		return artifact.Load(path)
	}
	r, err := reconcile.New(h.store, reconcile.SettingsFromConfig(h.cfg),
		reconcile.WithClock(h.clock.Now),
		reconcile.WithLoader(load),
	)
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}

	report, err := r.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if loadFailure != nil {
		t.Fatalf("List during load: %v", loadFailure)
	}
	if report.Discovered != len(names) {
		t.Fatalf("discovered = %d, want %d", report.Discovered, len(names))
	}
	for i := range names {
		// Artifact i belongs to batch i/2; every earlier batch is already inserted.
		if want := (i / 2) * 2; insertedAt[i] != want {
			t.Fatalf("artifact %d loaded with %d records stored, want %d", i, insertedAt[i], want)
		}
	}

	var lastID int64
	for _, path := range paths {
		rec := testsupport.MustFindByPath(t, h.store, path)
		if rec.ID <= lastID {
			t.Fatalf("%s has id %d, not after %d", path, rec.ID, lastID)
		}
		lastID = rec.ID
	}
}

type failingSaveStore struct {
	*sqlite.Store
	failPath string
}

func (s failingSaveStore) Save(ctx context.Context, rec *records.OcrRecord) error {
	if rec.Path == s.failPath {
		return errors.New("disk full")
	}
	return s.Store.Save(ctx, rec)
}

func TestSaveFailureIsolatedPerRecord(t *testing.T) {
	h := newHarness(t)
	testsupport.AddStoredFile(t, h.store, "one.pdf")
	testsupport.AddStoredFile(t, h.store, "two.pdf")
	one := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "one_ocr.json", "{}")
	two := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "two_ocr.json", "{}")

	r, err := reconcile.New(failingSaveStore{Store: h.store, failPath: one}, reconcile.SettingsFromConfig(h.cfg),
		reconcile.WithClock(h.clock.Now))
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	report, err := r.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if report.Errors != 1 || report.Matched != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if rec := testsupport.MustFindByPath(t, h.store, one); rec.Status != records.StatusPending || rec.RetryCount != 0 {
		t.Fatalf("failed save should leave record untouched: %#v", rec)
	}
	if rec := testsupport.MustFindByPath(t, h.store, two); rec.Status != records.StatusMatched {
		t.Fatalf("expected second record matched: %#v", rec)
	}
}

func TestTieBreakPrefersLowestStoredFileID(t *testing.T) {
	h := newHarness(t)
	first := testsupport.AddStoredFile(t, h.store, "dup.pdf")
	testsupport.AddStoredFile(t, h.store, "dup.docx")
	path := testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "dup_ocr.json", "{}")

	h.cycle(t)
	rec := testsupport.MustFindByPath(t, h.store, path)
	if rec.MatchedFileID == nil || *rec.MatchedFileID != first.ID {
		t.Fatalf("expected match to file %d, got %v", first.ID, rec.MatchedFileID)
	}
}

func TestScanOnceReturnsAllRecords(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "a_ocr.json", "{}")
	testsupport.WriteArtifact(t, h.cfg.Watcher.WatchDir, "b_ocr.json", "{}")
	if err := os.WriteFile(filepath.Join(h.cfg.Watcher.WatchDir, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	report, all, err := h.rec.ScanOnce(context.Background())
	if err != nil {
		t.Fatalf("ScanOnce: %v", err)
	}
	if report.ID == "" || report.Discovered != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
}
