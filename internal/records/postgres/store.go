// Package postgres persists OCR records and stored files in PostgreSQL
// through a pgx connection pool. It is the backend for deployments where the
// upload service and the watcher share one database.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

//go:embed schema.sql
var schemaSQL string

// Store manages record persistence backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	host string
}

var _ records.Store = (*Store)(nil)

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &Store{pool: pool, host: fmt.Sprintf("%s:%d/%s", cfg.ConnConfig.Host, cfg.ConnConfig.Port, cfg.ConnConfig.Database)}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return store, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

const recordColumns = "id, path, checksum, raw_content, status, matched_file_id, created_at, processed_at, last_attempt, retry_count"

const storedFileColumns = "id, filename, path, COALESCE(mime, ''), size, COALESCE(checksum, ''), created_at"

func scanRecord(row pgx.Row) (*records.OcrRecord, error) {
	var (
		rec    records.OcrRecord
		status string
		raw    []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Path,
		&rec.Checksum,
		&raw,
		&status,
		&rec.MatchedFileID,
		&rec.CreatedAt,
		&rec.ProcessedAt,
		&rec.LastAttempt,
		&rec.RetryCount,
	); err != nil {
		return nil, err
	}
	rec.Status = records.Status(status)
	rec.RawContent = string(raw)
	return &rec, nil
}

func scanStoredFile(row pgx.Row) (*records.StoredFile, error) {
	var file records.StoredFile
	if err := row.Scan(&file.ID, &file.Filename, &file.Path, &file.Mime, &file.Size, &file.Checksum, &file.CreatedAt); err != nil {
		return nil, err
	}
	return &file, nil
}

// FindByPath returns the record for an artifact path, or nil when none exists.
func (s *Store) FindByPath(ctx context.Context, path string) (*records.OcrRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE path = $1`, path))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find record by path: %w", err)
	}
	return rec, nil
}

// Get fetches a record by ID.
func (s *Store) Get(ctx context.Context, id int64) (*records.OcrRecord, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
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
	if len(statuses) == 0 {
		return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM ocr_records ORDER BY id`)
	}
	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE status = ANY($1) ORDER BY id`, values)
}

// FindByMatchedFile returns records matched to the given stored file.
func (s *Store) FindByMatchedFile(ctx context.Context, fileID int64) ([]*records.OcrRecord, error) {
	return s.queryRecords(ctx, `SELECT `+recordColumns+` FROM ocr_records WHERE matched_file_id = $1 ORDER BY id`, fileID)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*records.OcrRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

// Insert creates a record; a second insert for the same path reports
// records.ErrDuplicatePath.
func (s *Store) Insert(ctx context.Context, rec *records.OcrRecord) (*records.OcrRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ocr_records (path, checksum, raw_content, status, matched_file_id, created_at, processed_at, last_attempt, retry_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (path) DO NOTHING
		 RETURNING id`,
		rec.Path, rec.Checksum, rawContentBytes(rec.RawContent), string(rec.Status), rec.MatchedFileID,
		created, rec.ProcessedAt, rec.LastAttempt, rec.RetryCount,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", rec.Path, records.ErrDuplicatePath)
	}
	if err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}

	out := rec.Clone()
	out.ID = id
	out.CreatedAt = created
	return out, nil
}

// Save persists a state transition under the same guards as the SQLite backend.
func (s *Store) Save(ctx context.Context, rec *records.OcrRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE ocr_records
		 SET status = $1, matched_file_id = $2, processed_at = COALESCE(processed_at, $3), last_attempt = $4, retry_count = $5
		 WHERE id = $6 AND status = 'pending' AND retry_count <= $5`,
		string(rec.Status), rec.MatchedFileID, rec.ProcessedAt, rec.LastAttempt, rec.RetryCount, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	if tag.RowsAffected() > 0 {
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

// Stats counts OCR records per status.
func (s *Store) Stats(ctx context.Context) (records.Stats, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(1) FROM ocr_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	defer rows.Close()

	stats := make(records.Stats)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[records.Status(status)] = count
	}
	return stats, rows.Err()
}

// StoredFiles returns every stored file ordered by ascending ID.
func (s *Store) StoredFiles(ctx context.Context) ([]records.StoredFile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+storedFileColumns+` FROM stored_files ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list stored files: %w", err)
	}
	defer rows.Close()

	var files []records.StoredFile
	for rows.Next() {
		file, err := scanStoredFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stored file: %w", err)
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// GetStoredFile returns a stored file by ID, or nil when it does not exist.
func (s *Store) GetStoredFile(ctx context.Context, id int64) (*records.StoredFile, error) {
	file, err := scanStoredFile(s.pool.QueryRow(ctx, `SELECT `+storedFileColumns+` FROM stored_files WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stored file: %w", err)
	}
	return file, nil
}

// AddStoredFile records an uploaded document.
func (s *Store) AddStoredFile(ctx context.Context, file records.StoredFile) (*records.StoredFile, error) {
	if strings.TrimSpace(file.Filename) == "" {
		return nil, errors.New("stored file filename is empty")
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO stored_files (filename, path, mime, size, checksum, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		file.Filename, file.Path, nullableString(file.Mime), file.Size, nullableString(file.Checksum), file.CreatedAt,
	).Scan(&file.ID)
	if err != nil {
		return nil, fmt.Errorf("insert stored file: %w", err)
	}
	return &file, nil
}

// CheckHealth pings the server and counts rows.
func (s *Store) CheckHealth(ctx context.Context) (records.DatabaseHealth, error) {
	health := records.DatabaseHealth{Driver: "postgres", Location: s.host}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(connCtx); err != nil {
		health.Error = err.Error()
		return health, nil
	}
	health.Reachable = true
	if err := s.pool.QueryRow(connCtx, `SELECT (SELECT COUNT(1) FROM ocr_records), (SELECT COUNT(1) FROM stored_files)`).
		Scan(&health.RecordRows, &health.FileRows); err != nil {
		health.Error = err.Error()
	}
	return health, nil
}

// rawContentBytes keeps artifact content byte-exact; TEXT columns reject NUL
// and invalid UTF-8 that OCR output may contain.
func rawContentBytes(value string) []byte {
	if value == "" {
		return nil
	}
	return []byte(value)
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
