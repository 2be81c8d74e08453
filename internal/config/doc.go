// Package config loads, normalizes, and validates mycontracts configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment-style overrides such
// as WATCH_DIR and WATCHER_MAX_RETRIES. A .env file in the working directory
// is read first so container deployments can keep those overrides next to the
// binary.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, positive intervals, and clear validation errors.
package config
