// Package sqlite persists OCR records and stored files in a local SQLite
// database using the pure-Go modernc driver.
//
// The database runs in WAL mode with a busy timeout, and every statement is
// wrapped in a short exponential retry when SQLite still reports SQLITE_BUSY.
// The schema is embedded and versioned; a version mismatch is reported as
// ErrSchemaMismatch instead of being migrated in place.
package sqlite
