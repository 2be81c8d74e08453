// Package daemon coordinates the long-running mycontracts process.
//
// It ties the record store, the watcher, and the reconciliation counters into
// a single lifecycle with flock-based locking so only one daemon runs per
// state directory. The optional HTTP server exposes status, record listings,
// a manual scan trigger, and the counters in Prometheus text format.
//
// Keep orchestration here: matching and scheduling live in their own
// packages while the daemon focuses on startup, shutdown, and reporting.
package daemon
