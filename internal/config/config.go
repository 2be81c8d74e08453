package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	StorageDir string `toml:"storage_dir"`
	APIBind    string `toml:"api_bind"`
}

// Watcher controls the OCR artifact reconciliation loop.
type Watcher struct {
	WatchDir       string `toml:"watch_dir"`
	ArtifactSuffix string `toml:"artifact_suffix"`
	ScanIntervalMs int    `toml:"scan_interval_ms"`
	RetryBackoffMs int    `toml:"retry_backoff_ms"`
	MaxRetries     int    `toml:"max_retries"`
	LoadWorkers    int    `toml:"load_workers"`
}

// Store selects the record store backend.
type Store struct {
	Driver      string `toml:"driver"`
	PostgresURL string `toml:"postgres_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for mycontracts.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Watcher Watcher `toml:"watcher"`
	Store   Store   `toml:"store"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mycontracts/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded, so they win over file
// values. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load(".env")

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mycontracts.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon owns. The watch
// directory is deliberately absent: the watcher creates it itself and
// disables only its own loop when that fails.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.StorageDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ScanInterval is the delay between the end of one cycle and the start of the next.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Watcher.ScanIntervalMs) * time.Millisecond
}

// RetryBackoff is the minimum time between two match attempts for one record.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Watcher.RetryBackoffMs) * time.Millisecond
}

// DatabasePath returns the SQLite record store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "mycontracts.db")
}

// DaemonLockPath returns the single-instance lock file used by the daemon.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.StateDir, "mycontracts.lock")
}

// ScanLockPath returns the lock file that serializes reconciliation cycles
// across processes.
func (c *Config) ScanLockPath() string {
	return filepath.Join(c.Paths.StateDir, "scan.lock")
}

// PIDPath returns the daemon pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "mycontracts.pid")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "mycontracts.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
