package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/felix-dieterle/mycontracts/internal/api"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/logging"
	"github.com/felix-dieterle/mycontracts/internal/reconcile"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/watcher"
)

// ErrAlreadyRunning means another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another mycontracts daemon instance is already running")

// Daemon coordinates the watcher and API server and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    records.Store
	watcher  *watcher.Watcher
	counters *reconcile.Counters
	records  *api.RecordService

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Watcher      watcher.StatusSummary
	Counters     reconcile.CounterSnapshot
	RecordStats  records.Stats
}

// New constructs a daemon with initialized dependencies. counters may be nil.
func New(cfg *config.Config, store records.Store, w *watcher.Watcher, counters *reconcile.Counters, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || w == nil {
		return nil, errors.New("daemon requires config, store, and watcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if counters == nil {
		counters = reconcile.NewCounters()
	}

	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		watcher:  w,
		counters: counters,
		records:  api.NewRecordService(store),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the watcher, and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.watcher.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.watcher.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("mycontracts daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("watcher_state", d.watcher.State().String()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.watcher.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("mycontracts daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// APIAddr returns the bound API address, or "" when the server is disabled
// or not started.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Scan runs one manual cycle through the watcher.
func (d *Daemon) Scan(ctx context.Context) (reconcile.CycleReport, []*records.OcrRecord, error) {
	return d.watcher.ScanOnce(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("failed to read record stats", logging.Error(err))
	}
	location := d.cfg.DatabasePath()
	if d.cfg.Store.Driver == config.DriverPostgres {
		location = config.DriverPostgres
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: location,
		LockFilePath: d.lockPath,
		Watcher:      d.watcher.Status(),
		Counters:     d.counters.Snapshot(),
		RecordStats:  stats,
	}
}
