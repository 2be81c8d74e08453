// Command mycontracts runs the OCR ingestion daemon and the operator tooling
// around it.
//
// `watch` runs the daemon in the foreground. `scan` performs one manual
// reconciliation cycle and is safe alongside a running daemon because cycles
// are serialized through a lock file in the state directory. `records`,
// `files`, and `status` inspect and seed the record store directly.
package main
