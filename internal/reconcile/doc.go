// Package reconcile runs the OCR ingestion cycle: discover new artifacts,
// record them as pending, and drive every pending record through the bounded
// retry state machine until it is matched to a stored file or fails.
//
// A cycle holds an in-process mutex and, when configured, a file lock shared
// with other processes, so a manual scan from the CLI never interleaves with
// the daemon's scheduled cycle. The record store's path uniqueness
// constraint remains the last guard against duplicate records.
//
// The state machine itself (Due, Apply) is pure and has no I/O; Reconciler
// wires it to the scanner, matcher, store, and metrics sink.
package reconcile
