// Package filestore registers uploaded documents as stored files so pending
// OCR records can match them. It copies the source into the storage
// directory with checksum verification and records the result.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/felix-dieterle/mycontracts/internal/fileutil"
	"github.com/felix-dieterle/mycontracts/internal/records"
)

// MaxSizeBytes is the upload size limit.
const MaxSizeBytes = 10 * 1024 * 1024

var (
	// ErrInvalidFilename rejects names that would escape the storage directory.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrEmptyFile rejects zero-byte uploads.
	ErrEmptyFile = errors.New("file is empty")
	// ErrTooLarge rejects uploads over MaxSizeBytes.
	ErrTooLarge = errors.New("file too large")
)

// Registrar is the store subset needed to record files.
type Registrar interface {
	AddStoredFile(ctx context.Context, file records.StoredFile) (*records.StoredFile, error)
}

// Service stores files under one directory.
type Service struct {
	dir   string
	store Registrar
}

// New creates the storage directory if needed.
func New(dir string, store Registrar) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Service{dir: abs, store: store}, nil
}

// SanitizeFilename trims name and rejects anything containing a path
// separator or "..". An empty name becomes "file".
func SanitizeFilename(name string) (string, error) {
	filename := strings.TrimSpace(name)
	if filename == "" {
		return "file", nil
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return filename, nil
}

// Register copies src into the storage directory under name (or src's base
// name when name is empty) and records it. An existing file with the same
// name is replaced on disk; the new record gets its own ID.
func (s *Service) Register(ctx context.Context, src, name string) (*records.StoredFile, error) {
	if name == "" {
		name = filepath.Base(src)
	}
	filename, err := SanitizeFilename(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("upload %s is not a regular file", src)
	}
	switch {
	case info.Size() <= 0:
		return nil, ErrEmptyFile
	case info.Size() > MaxSizeBytes:
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, info.Size(), MaxSizeBytes)
	}

	dest := filepath.Join(s.dir, filename)
	if filepath.Dir(dest) != s.dir {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	partial := dest + ".part"
	_ = os.Remove(partial)
	checksum, err := fileutil.CopyFileVerified(src, partial)
	if err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	return s.store.AddStoredFile(ctx, records.StoredFile{
		Filename: filename,
		Path:     dest,
		Mime:     mime.TypeByExtension(filepath.Ext(filename)),
		Size:     info.Size(),
		Checksum: checksum,
	})
}
