// Package preflight checks the filesystem paths mycontracts depends on.
//
// The watcher uses PrepareWatchDir at startup to decide between Ready and
// Disabled; the CLI status command uses RunAll to display the same checks
// for every configured directory.
package preflight
