package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

const recordColumns = "id, path, checksum, raw_content, status, matched_file_id, created_at, processed_at, last_attempt, retry_count"

const storedFileColumns = "id, filename, path, mime, size, checksum, created_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(scanner rowScanner) (*records.OcrRecord, error) {
	var (
		rec          records.OcrRecord
		rawContent   sql.NullString
		statusStr    string
		matchedFile  sql.NullInt64
		createdRaw   string
		processedRaw sql.NullString
		attemptRaw   sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Path,
		&rec.Checksum,
		&rawContent,
		&statusStr,
		&matchedFile,
		&createdRaw,
		&processedRaw,
		&attemptRaw,
		&rec.RetryCount,
	); err != nil {
		return nil, err
	}

	rec.RawContent = rawContent.String
	rec.Status = records.Status(statusStr)
	if matchedFile.Valid {
		id := matchedFile.Int64
		rec.MatchedFileID = &id
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	rec.ProcessedAt = parseNullableTime(processedRaw)
	rec.LastAttempt = parseNullableTime(attemptRaw)
	return &rec, nil
}

func scanStoredFile(scanner rowScanner) (*records.StoredFile, error) {
	var (
		file       records.StoredFile
		mime       sql.NullString
		checksum   sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(&file.ID, &file.Filename, &file.Path, &mime, &file.Size, &checksum, &createdRaw); err != nil {
		return nil, err
	}
	file.Mime = mime.String
	file.Checksum = checksum.String
	if created, err := parseTimeString(createdRaw); err == nil {
		file.CreatedAt = created
	}
	return &file, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func nullableID(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
