// Package watcher schedules reconciliation cycles on a fixed delay and
// exposes the manual trigger used by the CLI and the HTTP API.
//
// A watcher whose directory cannot be prepared at construction time starts
// Disabled and stays inert: Start returns without launching a loop and Tick
// reports ErrDisabled. The host process keeps running either way.
package watcher
