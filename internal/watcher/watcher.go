package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/logging"
	"github.com/felix-dieterle/mycontracts/internal/preflight"
	"github.com/felix-dieterle/mycontracts/internal/reconcile"
	"github.com/felix-dieterle/mycontracts/internal/records"
)

// ErrDisabled is returned by manual triggers on a disabled watcher.
var ErrDisabled = errors.New("watcher disabled")

// State is the watcher's lifecycle state.
type State int

const (
	Disabled State = iota
	Ready
	Running
)

func (s State) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Ready:
		return "ready"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

const (
	triggerScheduled = "scheduled"
	triggerManual    = "manual"
)

// Cycler runs reconciliation cycles. *reconcile.Reconciler satisfies it.
type Cycler interface {
	Cycle(ctx context.Context) (reconcile.CycleReport, error)
	ScanOnce(ctx context.Context) (reconcile.CycleReport, []*records.OcrRecord, error)
	WatchDir() string
}

// StatusSummary is a point-in-time view of the watcher.
type StatusSummary struct {
	State          State
	WatchDir       string
	Interval       time.Duration
	DisabledReason string
	LastError      string
	LastRunAt      *time.Time
	LastReport     *reconcile.CycleReport
}

// Watcher drives a Cycler on a fixed delay.
type Watcher struct {
	cycler   Cycler
	interval time.Duration
	logger   *slog.Logger

	mu             sync.RWMutex
	state          State
	disabledReason string
	lastErr        error
	lastRunAt      time.Time
	lastReport     *reconcile.CycleReport

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New prepares the watch directory and returns a watcher. When the directory
// cannot be created or read, the watcher is returned Disabled and a warning
// is logged; no error is returned for that case.
func New(cycler Cycler, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if cycler == nil {
		return nil, errors.New("watcher requires a cycler")
	}
	if interval <= 0 {
		return nil, errors.New("watcher interval must be positive")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	w := &Watcher{
		cycler:   cycler,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		state:    Ready,
	}

	result := preflight.PrepareWatchDir(cycler.WatchDir())
	if err := result.Err(); err != nil {
		w.state = Disabled
		w.disabledReason = result.Detail
		logging.WarnWithContext(w.logger, "watch directory unavailable; OCR ingestion disabled", "watcher_disabled",
			logging.String(logging.FieldPath, cycler.WatchDir()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "create the watch directory or fix its permissions, then restart"),
			logging.String(logging.FieldImpact, "new OCR artifacts will not be ingested"),
		)
	}
	return w, nil
}

// State returns the current lifecycle state.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Start launches the scheduling loop. The first cycle runs immediately and
// each following cycle starts one interval after the previous one finished.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	switch w.state {
	case Disabled:
		reason := w.disabledReason
		w.mu.Unlock()
		w.logger.Info("watcher disabled; scheduling skipped",
			logging.String(logging.FieldEventType, "watcher_start_skipped"),
			logging.String("reason", reason),
		)
		return nil
	case Running:
		w.mu.Unlock()
		return errors.New("watcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.state = Running
	w.wg.Add(1)
	w.mu.Unlock()

	w.logger.Info("watcher started",
		logging.String(logging.FieldEventType, "watcher_started"),
		logging.String(logging.FieldPath, w.cycler.WatchDir()),
		logging.Duration("interval", w.interval),
	)
	go w.loop(runCtx)
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.state != Running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.cancel = nil
	w.state = Ready
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
	w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watcher_stopped"))
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		// A started cycle runs to completion even when shutdown begins.
		_, _ = w.run(context.WithoutCancel(logging.WithTrigger(ctx, triggerScheduled)))

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

// Tick runs one cycle outside the schedule.
func (w *Watcher) Tick(ctx context.Context) (reconcile.CycleReport, error) {
	if w.State() == Disabled {
		return reconcile.CycleReport{}, ErrDisabled
	}
	return w.run(logging.WithTrigger(ctx, triggerManual))
}

// ScanOnce runs one manual cycle and returns the full record set.
func (w *Watcher) ScanOnce(ctx context.Context) (reconcile.CycleReport, []*records.OcrRecord, error) {
	if w.State() == Disabled {
		return reconcile.CycleReport{}, nil, ErrDisabled
	}
	ctx = logging.WithTrigger(ctx, triggerManual)
	report, recs, err := w.cycler.ScanOnce(ctx)
	w.record(ctx, report, err)
	return report, recs, err
}

func (w *Watcher) run(ctx context.Context) (reconcile.CycleReport, error) {
	report, err := w.cycler.Cycle(ctx)
	w.record(ctx, report, err)
	return report, err
}

func (w *Watcher) record(ctx context.Context, report reconcile.CycleReport, err error) {
	w.mu.Lock()
	w.lastRunAt = time.Now()
	w.lastErr = err
	if err == nil {
		copy := report
		w.lastReport = &copy
	}
	w.mu.Unlock()

	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, w.logger), "reconciliation cycle failed", "cycle_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check watch directory access and record store health"),
			logging.String(logging.FieldImpact, "record state unchanged until the next cycle"),
		)
	}
}

// Status returns the current watcher summary.
func (w *Watcher) Status() StatusSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()

	summary := StatusSummary{
		State:          w.state,
		WatchDir:       w.cycler.WatchDir(),
		Interval:       w.interval,
		DisabledReason: w.disabledReason,
	}
	if w.lastErr != nil {
		summary.LastError = w.lastErr.Error()
	}
	if !w.lastRunAt.IsZero() {
		at := w.lastRunAt
		summary.LastRunAt = &at
	}
	if w.lastReport != nil {
		copy := *w.lastReport
		summary.LastReport = &copy
	}
	return summary
}
