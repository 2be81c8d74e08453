package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/felix-dieterle/mycontracts/internal/artifact"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/logging"
	"github.com/felix-dieterle/mycontracts/internal/matcher"
	"github.com/felix-dieterle/mycontracts/internal/records"
)

// Store is the subset of records.Store a cycle needs.
type Store interface {
	FindByPath(ctx context.Context, path string) (*records.OcrRecord, error)
	ListByStatus(ctx context.Context, status records.Status) ([]*records.OcrRecord, error)
	List(ctx context.Context, statuses ...records.Status) ([]*records.OcrRecord, error)
	Insert(ctx context.Context, rec *records.OcrRecord) (*records.OcrRecord, error)
	Save(ctx context.Context, rec *records.OcrRecord) error
	StoredFiles(ctx context.Context) ([]records.StoredFile, error)
}

// Settings are the tunables of a reconciliation cycle.
type Settings struct {
	WatchDir     string
	Suffix       string
	MaxRetries   int
	Backoff      time.Duration
	LoadWorkers  int
	ScanLockPath string
}

// SettingsFromConfig maps the [watcher] section onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		WatchDir:     cfg.Watcher.WatchDir,
		Suffix:       cfg.Watcher.ArtifactSuffix,
		MaxRetries:   cfg.Watcher.MaxRetries,
		Backoff:      cfg.RetryBackoff(),
		LoadWorkers:  cfg.Watcher.LoadWorkers,
		ScanLockPath: cfg.ScanLockPath(),
	}
}

// Option configures optional Reconciler behavior.
type Option func(*Reconciler)

// WithClock replaces time.Now, mainly for backoff tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMetrics sets the counter sink.
func WithMetrics(sink Sink) Option {
	return func(r *Reconciler) {
		if sink != nil {
			r.metrics = sink
		}
	}
}

// WithLoader replaces artifact.Load, which reads and hashes one artifact.
func WithLoader(load func(path string) (artifact.Loaded, error)) Option {
	return func(r *Reconciler) {
		if load != nil {
			r.load = load
		}
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logging.NewComponentLogger(logger, "reconcile")
	}
}

// Reconciler runs discovery and state transitions against a record store.
type Reconciler struct {
	store    Store
	scanner  *artifact.Scanner
	settings Settings
	metrics  Sink
	logger   *slog.Logger
	now      func() time.Time
	load     func(path string) (artifact.Loaded, error)

	mu       sync.Mutex
	scanLock *flock.Flock
}

// New builds a Reconciler.
func New(store Store, settings Settings, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("reconcile: store is required")
	}
	if settings.MaxRetries < 1 {
		return nil, fmt.Errorf("reconcile: max retries must be >= 1, got %d", settings.MaxRetries)
	}
	if settings.LoadWorkers <= 0 {
		settings.LoadWorkers = 1
	}
	scanner, err := artifact.NewScanner(settings.WatchDir, settings.Suffix)
	if err != nil {
		return nil, err
	}

	r := &Reconciler{
		store:    store,
		scanner:  scanner,
		settings: settings,
		metrics:  nopSink{},
		logger:   logging.NewComponentLogger(nil, "reconcile"),
		now:      time.Now,
		load:     artifact.Load,
	}
	if settings.ScanLockPath != "" {
		r.scanLock = flock.New(settings.ScanLockPath)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// WatchDir returns the absolute directory scanned each cycle.
func (r *Reconciler) WatchDir() string {
	return r.scanner.Dir()
}

// Cycle runs one scan-and-reconcile pass. A returned error means the cycle
// was abandoned: the watch directory could not be listed, or the store could
// not enumerate pending records or stored files. Failures on single records
// are logged and counted in the report's Errors field instead.
func (r *Reconciler) Cycle(ctx context.Context) (CycleReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := CycleReport{ID: uuid.NewString(), StartedAt: r.now()}
	ctx = logging.WithCycleID(ctx, report.ID)
	logger := logging.WithContext(ctx, r.logger)

	unlock, err := r.lockScan(ctx)
	if err != nil {
		report.FinishedAt = r.now()
		return report, err
	}
	defer unlock()

	if err := r.discover(ctx, logger, &report); err != nil {
		report.FinishedAt = r.now()
		return report, err
	}
	if err := r.reconcilePending(ctx, logger, &report); err != nil {
		report.FinishedAt = r.now()
		return report, err
	}

	report.FinishedAt = r.now()
	logger.Debug("reconcile cycle finished",
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Int("discovered", report.Discovered),
		logging.Int("matched", report.Matched),
		logging.Int("retried", report.Retried),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped),
		logging.Int("errors", report.Errors),
	)
	return report, nil
}

// ScanOnce runs a cycle and returns every record in the store afterwards.
func (r *Reconciler) ScanOnce(ctx context.Context) (CycleReport, []*records.OcrRecord, error) {
	report, err := r.Cycle(ctx)
	if err != nil {
		return report, nil, err
	}
	all, err := r.store.List(ctx)
	if err != nil {
		return report, nil, fmt.Errorf("list records: %w", err)
	}
	return report, all, nil
}

func (r *Reconciler) lockScan(ctx context.Context) (func(), error) {
	if r.scanLock == nil {
		return func() {}, nil
	}
	locked, err := r.scanLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire scan lock %s: %w", r.scanLock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire scan lock %s: not acquired", r.scanLock.Path())
	}
	return func() { _ = r.scanLock.Unlock() }, nil
}

type loadResult struct {
	loaded artifact.Loaded
	err    error
}

func (r *Reconciler) discover(ctx context.Context, logger *slog.Logger, report *CycleReport) error {
	seq, err := r.scanner.Scan(ctx, r.store)
	if err != nil {
		logging.ErrorWithContext(logger, "watch directory scan failed", "scan_failed",
			logging.String(logging.FieldPath, r.scanner.Dir()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the watch directory exists and is readable"),
		)
		return err
	}

	var candidates []artifact.Candidate
	for candidate, err := range seq {
		if err != nil {
			report.Errors++
			logging.WarnWithContext(logger, "artifact lookup failed", "artifact_lookup_failed",
				logging.String(logging.FieldPath, candidate.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "artifact will be retried next cycle"),
			)
			continue
		}
		candidates = append(candidates, candidate)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Load at most LoadWorkers payloads at a time and insert each batch in
	// scan order before reading the next.
	batchSize := r.settings.LoadWorkers
	for start := 0; start < len(candidates); start += batchSize {
		batch := candidates[start:min(start+batchSize, len(candidates))]
		r.insertBatch(ctx, logger, report, batch, r.loadBatch(batch))
	}
	return nil
}

func (r *Reconciler) loadBatch(batch []artifact.Candidate) []loadResult {
	results := make([]loadResult, len(batch))
	var g errgroup.Group
	g.SetLimit(r.settings.LoadWorkers)
	for i, candidate := range batch {
		g.Go(func() error {
			loaded, err := r.load(candidate.Path)
			results[i] = loadResult{loaded: loaded, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Reconciler) insertBatch(ctx context.Context, logger *slog.Logger, report *CycleReport, batch []artifact.Candidate, results []loadResult) {
	for i, candidate := range batch {
		if err := results[i].err; err != nil {
			report.Errors++
			logging.WarnWithContext(logger, "artifact read failed", "artifact_read_failed",
				logging.String(logging.FieldPath, candidate.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "artifact will be retried next cycle"),
			)
			continue
		}
		loaded := results[i].loaded
		rec, err := r.store.Insert(ctx, &records.OcrRecord{
			Path:       loaded.Path,
			Checksum:   loaded.Checksum,
			RawContent: string(loaded.Content),
			Status:     records.StatusPending,
			CreatedAt:  r.now(),
		})
		if errors.Is(err, records.ErrDuplicatePath) {
			logger.Debug("artifact recorded concurrently", logging.String(logging.FieldPath, candidate.Path))
			continue
		}
		if err != nil {
			report.Errors++
			logging.WarnWithContext(logger, "record insert failed", "record_insert_failed",
				logging.String(logging.FieldPath, candidate.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "artifact will be retried next cycle"),
			)
			continue
		}
		report.Discovered++
		r.metrics.IncPending()
		logger.Info("ocr artifact discovered",
			logging.String(logging.FieldEventType, "artifact_discovered"),
			logging.Int64(logging.FieldRecordID, rec.ID),
			logging.String(logging.FieldPath, rec.Path),
			logging.Int64("size_bytes", candidate.Size),
		)
	}
}

func (r *Reconciler) reconcilePending(ctx context.Context, logger *slog.Logger, report *CycleReport) error {
	pending, err := r.store.ListByStatus(ctx, records.StatusPending)
	if err != nil {
		return fmt.Errorf("list pending records: %w", err)
	}

	now := r.now()
	var files []records.StoredFile
	filesLoaded := false

	for _, rec := range pending {
		if !Due(rec, now, r.settings.Backoff) {
			report.Skipped++
			continue
		}
		if !filesLoaded {
			files, err = r.store.StoredFiles(ctx)
			if err != nil {
				return fmt.Errorf("list stored files: %w", err)
			}
			filesLoaded = true
		}
		r.attempt(ctx, logger, report, rec, files, now)
	}
	return nil
}

func (r *Reconciler) attempt(ctx context.Context, logger *slog.Logger, report *CycleReport, rec *records.OcrRecord, files []records.StoredFile, now time.Time) {
	recLogger := logger.With(
		logging.Int64(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldPath, rec.Path),
	)

	baseID := matcher.BaseIdentifier(filepath.Base(rec.Path), r.settings.Suffix)
	result := matcher.Match(baseID, files)
	if result.Ambiguous() {
		logging.WarnWithContext(recLogger, "several stored files share the artifact base name", "match_ambiguous",
			logging.String("base_id", baseID),
			logging.Int("candidates", result.Candidates),
			logging.Int64("chosen_file_id", result.File.ID),
			logging.String(logging.FieldImpact, "matched to the stored file with the lowest id"),
			logging.String(logging.FieldErrorHint, "rename duplicate uploads if a different file was intended"),
		)
	}

	transition, err := Apply(rec, result.File, now, r.settings.MaxRetries)
	if err != nil {
		report.Errors++
		logging.WarnWithContext(recLogger, "record transition rejected", "transition_rejected", logging.Error(err))
		return
	}
	if err := r.store.Save(ctx, transition.Record); err != nil {
		report.Errors++
		logging.WarnWithContext(recLogger, "record save failed", "record_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt will be repeated next cycle"),
		)
		return
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "record_"+transition.Outcome.String()),
		logging.Int("retry_count", transition.Record.RetryCount),
	}
	switch transition.Outcome {
	case OutcomeMatched:
		report.Matched++
		r.metrics.IncMatched()
		attrs = append(attrs, logging.Int64("stored_file_id", result.File.ID), logging.String("stored_filename", result.File.Filename))
		recLogger.Info("ocr record matched", logging.Args(attrs...)...)
	case OutcomeRetried:
		report.Retried++
		r.metrics.IncRetried()
		recLogger.Debug("no stored file yet, record stays pending", logging.Args(attrs...)...)
	case OutcomeFailed:
		report.Failed++
		r.metrics.IncFailed()
		attrs = append(attrs,
			logging.String(logging.FieldImpact, "record will not be matched automatically"),
			logging.String(logging.FieldErrorHint, "upload a file named "+baseID+".<ext> and drop a new artifact"),
		)
		logging.WarnWithContext(recLogger, "ocr record failed after exhausting retries", "record_failed", attrs...)
	}
}
