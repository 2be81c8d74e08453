package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/felix-dieterle/mycontracts/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The watch directory is not created so tests can exercise both the missing
// and present cases.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfg.Paths.StorageDir = filepath.Join(base, "files")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Watcher.WatchDir = filepath.Join(base, "incoming")
	cfg.Watcher.ScanIntervalMs = 20
	cfg.Watcher.RetryBackoffMs = 5000

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxRetries overrides the retry ceiling.
func WithMaxRetries(n int) ConfigOption {
	return func(c *config.Config) { c.Watcher.MaxRetries = n }
}

// WithBackoffMs overrides the retry backoff window.
func WithBackoffMs(ms int) ConfigOption {
	return func(c *config.Config) { c.Watcher.RetryBackoffMs = ms }
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StorageDir)
}
