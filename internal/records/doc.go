// Package records defines the persistent entities of the OCR ingestion loop:
// OCR records discovered in the watch directory and the stored files they are
// matched against.
//
// The Store interface is the contract both the SQLite and Postgres backends
// satisfy. Backends enforce the record invariants at the storage layer too:
// one record per artifact path, a matched file reference only on matched
// records, a processed timestamp written once, and no writes to terminal
// records.
package records
