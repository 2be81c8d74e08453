package config

const (
	defaultStateDir       = "~/.local/share/mycontracts"
	defaultLogDir         = "~/.local/share/mycontracts/logs"
	defaultStorageDir     = "~/.local/share/mycontracts/files"
	defaultAPIBind        = "127.0.0.1:7488"
	defaultWatchDir       = "/data/incoming"
	defaultArtifactSuffix = "_ocr.json"
	defaultScanIntervalMs = 5000
	defaultRetryBackoffMs = 5000
	defaultMaxRetries     = 5
	defaultLoadWorkers    = 4
	defaultStoreDriver    = DriverSQLite
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Supported record store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			StorageDir: defaultStorageDir,
			APIBind:    defaultAPIBind,
		},
		Watcher: Watcher{
			WatchDir:       defaultWatchDir,
			ArtifactSuffix: defaultArtifactSuffix,
			ScanIntervalMs: defaultScanIntervalMs,
			RetryBackoffMs: defaultRetryBackoffMs,
			MaxRetries:     defaultMaxRetries,
			LoadWorkers:    defaultLoadWorkers,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
