package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/records/sqlite"
)

// MustOpenStore opens the SQLite record store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(context.Background(), cfg.DatabasePath())
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// AddStoredFile registers a stored file by name.
func AddStoredFile(t testing.TB, store records.Store, filename string) *records.StoredFile {
	t.Helper()

	file, err := store.AddStoredFile(context.Background(), records.StoredFile{
		Filename: filename,
		Path:     "/files/" + filename,
	})
	if err != nil {
		t.Fatalf("AddStoredFile(%s): %v", filename, err)
	}
	return file
}

// MustFindByPath fetches a record that must exist.
func MustFindByPath(t testing.TB, store records.Store, path string) *records.OcrRecord {
	t.Helper()

	rec, err := store.FindByPath(context.Background(), path)
	if err != nil {
		t.Fatalf("FindByPath(%s): %v", path, err)
	}
	if rec == nil {
		t.Fatalf("expected record for %s", path)
	}
	return rec
}

// Clock is a manually advanced time source.
type Clock struct {
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }
