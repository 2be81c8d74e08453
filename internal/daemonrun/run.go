// Package daemonrun hosts the daemon process runtime: signal handling, logger
// setup, the pid file, and wiring the store, reconciler, watcher, and daemon.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/daemon"
	"github.com/felix-dieterle/mycontracts/internal/logging"
	"github.com/felix-dieterle/mycontracts/internal/reconcile"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/storage"
	"github.com/felix-dieterle/mycontracts/internal/watcher"
)

// Run starts the daemon and blocks until cmdCtx is cancelled or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logConfigSnapshot(logger, cfg)

	store, err := storage.Open(signalCtx, cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open record store", "store_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store.driver and the database location"),
		)
		return err
	}

	counters := reconcile.NewCounters()
	w, err := NewWatcher(cfg, store, counters, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	d, err := daemon.New(cfg, store, w, counters, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	// Only the instance holding the daemon lock owns the pid file.
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	<-signalCtx.Done()
	logger.Info("mycontracts daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

// NewWatcher builds the reconciler and watcher for cfg. counters may be nil.
func NewWatcher(cfg *config.Config, store records.Store, counters *reconcile.Counters, logger *slog.Logger) (*watcher.Watcher, error) {
	opts := []reconcile.Option{reconcile.WithLogger(logger)}
	if counters != nil {
		opts = append(opts, reconcile.WithMetrics(counters))
	}
	rec, err := reconcile.New(store, reconcile.SettingsFromConfig(cfg), opts...)
	if err != nil {
		return nil, fmt.Errorf("create reconciler: %w", err)
	}
	w, err := watcher.New(rec, cfg.ScanInterval(), logger)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return w, nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("watch_dir", cfg.Watcher.WatchDir),
		logging.String("artifact_suffix", cfg.Watcher.ArtifactSuffix),
		logging.Duration("scan_interval", cfg.ScanInterval()),
		logging.Duration("retry_backoff", cfg.RetryBackoff()),
		logging.Int("max_retries", cfg.Watcher.MaxRetries),
		logging.String("store_driver", cfg.Store.Driver),
		logging.String("storage_dir", cfg.Paths.StorageDir),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
}
