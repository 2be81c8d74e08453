package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/records/postgres"
)

func openTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("MYCONTRACTS_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("MYCONTRACTS_TEST_POSTGRES_URL not set")
	}
	store, err := postgres.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInsertRejectsDuplicatePath(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	path := fmt.Sprintf("/incoming/pg-%d_ocr.json", time.Now().UnixNano())

	rec := &records.OcrRecord{Path: path, Checksum: "abc", Status: records.StatusPending}
	inserted, err := store.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if inserted.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	if _, err := store.Insert(ctx, rec); !errors.Is(err, records.ErrDuplicatePath) {
		t.Fatalf("expected ErrDuplicatePath, got %v", err)
	}
}

func TestSaveMatchedRecordIsTerminal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	file, err := store.AddStoredFile(ctx, records.StoredFile{Filename: "contract.pdf", Path: "/files/contract.pdf"})
	if err != nil {
		t.Fatalf("AddStoredFile: %v", err)
	}
	rec, err := store.Insert(ctx, &records.OcrRecord{
		Path:     fmt.Sprintf("/incoming/pg-match-%d_ocr.json", time.Now().UnixNano()),
		Checksum: "abc",
		Status:   records.StatusPending,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	now := time.Now().UTC()
	rec.Status = records.StatusMatched
	rec.MatchedFileID = &file.ID
	rec.ProcessedAt = &now
	rec.LastAttempt = &now
	rec.RetryCount = 1
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	matched, err := store.FindByMatchedFile(ctx, file.ID)
	if err != nil || len(matched) != 1 || matched[0].ID != rec.ID {
		t.Fatalf("FindByMatchedFile = %v, %v", matched, err)
	}

	rec.RetryCount = 2
	if err := store.Save(ctx, rec); !errors.Is(err, records.ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestInsertKeepsBinaryRawContent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	content := "{\"text\":\"page\x00one\"}\xff\xfe"

	inserted, err := store.Insert(ctx, &records.OcrRecord{
		Path:       fmt.Sprintf("/incoming/pg-binary-%d_ocr.json", time.Now().UnixNano()),
		Checksum:   "abc",
		RawContent: content,
		Status:     records.StatusPending,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, err := store.Get(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RawContent != content {
		t.Fatalf("raw content = %q, want %q", got.RawContent, content)
	}
}
