package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

// StoredFiles returns every stored file ordered by ascending ID. The matcher
// relies on this order for its tie-break.
func (s *Store) StoredFiles(ctx context.Context) ([]records.StoredFile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+storedFileColumns+` FROM stored_files ORDER BY id`)
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
	row := s.db.QueryRowContext(ctx, `SELECT `+storedFileColumns+` FROM stored_files WHERE id = ?`, id)
	file, err := scanStoredFile(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	res, err := s.execWithRetry(ctx,
		`INSERT INTO stored_files (filename, path, mime, size, checksum, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		file.Filename,
		file.Path,
		nullableString(file.Mime),
		file.Size,
		nullableString(file.Checksum),
		formatTime(file.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert stored file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert stored file id: %w", err)
	}
	file.ID = id
	return &file, nil
}
