package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

// FindByPath returns the record for an artifact path, or nil when none exists.
func (s *Store) FindByPath(ctx context.Context, path string) (*records.OcrRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE path = ?`, path)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record by path: %w", err)
	}
	return rec, nil
}

// Get fetches a record by ID.
func (s *Store) Get(ctx context.Context, id int64) (*records.OcrRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ocr record %d: %w", id, records.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ListByStatus returns all records in one status ordered by ID.
func (s *Store) ListByStatus(ctx context.Context, status records.Status) ([]*records.OcrRecord, error) {
	return s.List(ctx, status)
}

// List returns records filtered by status, or every record when no status is given.
func (s *Store) List(ctx context.Context, statuses ...records.Status) ([]*records.OcrRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ocr_records`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, string(status))
		}
	}
	query += ` ORDER BY id`
	return s.queryRecords(ctx, query, args...)
}

// FindByMatchedFile returns records matched to the given stored file.
func (s *Store) FindByMatchedFile(ctx context.Context, fileID int64) ([]*records.OcrRecord, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE matched_file_id = ? ORDER BY id`, fileID)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*records.OcrRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*records.OcrRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Insert creates a record. The path uniqueness constraint is the final guard
// against two scans racing on the same artifact: the losing insert reports
// records.ErrDuplicatePath and writes nothing.
func (s *Store) Insert(ctx context.Context, rec *records.OcrRecord) (*records.OcrRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	res, err := s.execWithRetry(ctx,
		`INSERT INTO ocr_records (path, checksum, raw_content, status, matched_file_id, created_at, processed_at, last_attempt, retry_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO NOTHING`,
		rec.Path,
		rec.Checksum,
		nullableString(rec.RawContent),
		string(rec.Status),
		nullableID(rec.MatchedFileID),
		formatTime(created),
		nullableTime(rec.ProcessedAt),
		nullableTime(rec.LastAttempt),
		rec.RetryCount,
	)
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("insert record rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%s: %w", rec.Path, records.ErrDuplicatePath)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert record id: %w", err)
	}

	out := rec.Clone()
	out.ID = id
	out.CreatedAt = created
	return out, nil
}

// Save persists a state transition. Only pending rows are writable, the
// retry count never decreases, and processed_at keeps its first value.
func (s *Store) Save(ctx context.Context, rec *records.OcrRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE ocr_records
		 SET status = ?, matched_file_id = ?, processed_at = COALESCE(processed_at, ?), last_attempt = ?, retry_count = ?
		 WHERE id = ? AND status = 'pending' AND retry_count <= ?`,
		string(rec.Status),
		nullableID(rec.MatchedFileID),
		nullableTime(rec.ProcessedAt),
		nullableTime(rec.LastAttempt),
		rec.RetryCount,
		rec.ID,
		rec.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save record rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.Get(ctx, rec.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return fmt.Errorf("ocr record %d is %s: %w", rec.ID, current.Status, records.ErrTerminal)
	}
	return fmt.Errorf("%w: retry count %d is below stored %d", records.ErrInvalidRecord, rec.RetryCount, current.RetryCount)
}
