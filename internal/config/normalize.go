package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv copies environment-style overrides onto the config. Unset
// variables leave the file or default value alone.
func (c *Config) applyEnv() error {
	stringVars := []struct {
		name   string
		target *string
	}{
		{"WATCH_DIR", &c.Watcher.WatchDir},
		{"FILE_STORAGE_PATH", &c.Paths.StorageDir},
		{"MYCONTRACTS_STATE_DIR", &c.Paths.StateDir},
		{"MYCONTRACTS_API_BIND", &c.Paths.APIBind},
		{"MYCONTRACTS_DB_DRIVER", &c.Store.Driver},
		{"MYCONTRACTS_LOG_LEVEL", &c.Logging.Level},
	}
	for _, v := range stringVars {
		if value, ok := os.LookupEnv(v.name); ok && strings.TrimSpace(value) != "" {
			*v.target = strings.TrimSpace(value)
		}
	}

	if value, ok := lookupFirst("MYCONTRACTS_POSTGRES_URL", "DATABASE_URL"); ok {
		c.Store.PostgresURL = value
	}

	intVars := []struct {
		name   string
		target *int
	}{
		{"WATCHER_SCAN_INTERVAL_MS", &c.Watcher.ScanIntervalMs},
		{"WATCHER_RETRY_BACKOFF_MS", &c.Watcher.RetryBackoffMs},
		{"WATCHER_MAX_RETRIES", &c.Watcher.MaxRetries},
	}
	for _, v := range intVars {
		value, ok := os.LookupEnv(v.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", v.name, value)
		}
		*v.target = parsed
	}
	return nil
}

func lookupFirst(names ...string) (string, bool) {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), true
		}
	}
	return "", false
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeStore()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	// An empty bind address disables the HTTP API.
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)

	if strings.TrimSpace(c.Watcher.WatchDir) == "" {
		c.Watcher.WatchDir = defaultWatchDir
	}
	if c.Watcher.WatchDir, err = expandPath(c.Watcher.WatchDir); err != nil {
		return fmt.Errorf("watcher.watch_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	c.Watcher.ArtifactSuffix = strings.TrimSpace(c.Watcher.ArtifactSuffix)
	if c.Watcher.ArtifactSuffix == "" {
		c.Watcher.ArtifactSuffix = defaultArtifactSuffix
	}
	if c.Watcher.LoadWorkers <= 0 {
		c.Watcher.LoadWorkers = defaultLoadWorkers
	}
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.PostgresURL = strings.TrimSpace(c.Store.PostgresURL)
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
