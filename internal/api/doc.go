// Package api defines wire-format types and converters for the HTTP API and
// the CLI's JSON output. It translates records, cycle reports, and watcher
// status into transport-friendly DTOs so consumers do not couple to internal
// types.
//
// DTOs use camelCase JSON tags. Statuses are exposed as lowercase strings and
// timestamps use RFC3339 with milliseconds. Raw artifact content is omitted
// from list payloads.
package api
