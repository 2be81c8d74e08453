// Package artifact discovers OCR artifacts in the watch directory and loads
// their content.
//
// Scan lists the directory once, up front, so a listing failure surfaces
// before any candidate is produced and the caller can abandon the cycle
// without creating partial state. Candidates are then yielded lazily and
// filtered against already-recorded paths one at a time.
package artifact
