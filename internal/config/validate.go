package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatcher(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatcher() error {
	if c.Watcher.ScanIntervalMs <= 0 {
		return errors.New("watcher.scan_interval_ms: must be positive")
	}
	if c.Watcher.RetryBackoffMs < 0 {
		return errors.New("watcher.retry_backoff_ms: must be >= 0")
	}
	if c.Watcher.MaxRetries < 1 {
		return errors.New("watcher.max_retries: must be >= 1")
	}
	if strings.ContainsAny(c.Watcher.ArtifactSuffix, `/\`) {
		return fmt.Errorf("watcher.artifact_suffix: %q must not contain path separators", c.Watcher.ArtifactSuffix)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Store.PostgresURL == "" {
			return errors.New("store.postgres_url is required when store.driver is postgres. Set MYCONTRACTS_POSTGRES_URL or DATABASE_URL")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want %s or %s)", c.Store.Driver, DriverSQLite, DriverPostgres)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
