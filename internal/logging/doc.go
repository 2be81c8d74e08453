// Package logging assembles structured slog loggers and formatting helpers used
// across mycontracts.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so reconciliation code can tag
// every line of a cycle with the same cycle ID. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
