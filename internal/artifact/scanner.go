package artifact

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

// Known reports whether an artifact path already has a record.
type Known interface {
	FindByPath(ctx context.Context, path string) (*records.OcrRecord, error)
}

// Candidate is an artifact file with no record yet.
type Candidate struct {
	Path string
	Name string
	Size int64
}

// Scanner lists artifacts with a fixed name suffix.
type Scanner struct {
	dir    string
	suffix string
}

// NewScanner builds a scanner for dir. Paths produced are absolute.
func NewScanner(dir, suffix string) (*Scanner, error) {
	if strings.TrimSpace(suffix) == "" {
		return nil, fmt.Errorf("artifact suffix is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch directory %q: %w", dir, err)
	}
	return &Scanner{dir: abs, suffix: suffix}, nil
}

// Dir returns the absolute watch directory.
func (s *Scanner) Dir() string { return s.dir }

// Suffix returns the artifact marker suffix.
func (s *Scanner) Suffix() string { return s.suffix }

// IsArtifact reports whether name carries the marker suffix and has a
// non-empty base identifier in front of it.
func (s *Scanner) IsArtifact(name string) bool {
	return strings.HasSuffix(name, s.suffix) && len(name) > len(s.suffix)
}

// Scan lists the watch directory and returns a sequence of candidates whose
// path has no record in known. The listing happens before Scan returns; an
// error there is fatal for the caller's cycle. Errors from known are yielded
// per candidate and do not stop the sequence.
func (s *Scanner) Scan(ctx context.Context, known Known) (iter.Seq2[Candidate, error], error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list watch directory %s: %w", s.dir, err)
	}

	var files []Candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !s.IsArtifact(entry.Name()) {
			continue
		}
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, Candidate{
			Path: filepath.Join(s.dir, entry.Name()),
			Name: entry.Name(),
			Size: size,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	return func(yield func(Candidate, error) bool) {
		for _, candidate := range files {
			if ctx.Err() != nil {
				yield(candidate, ctx.Err())
				return
			}
			existing, err := known.FindByPath(ctx, candidate.Path)
			if err != nil {
				if !yield(candidate, fmt.Errorf("check existing record for %s: %w", candidate.Path, err)) {
					return
				}
				continue
			}
			if existing != nil {
				continue
			}
			if !yield(candidate, nil) {
				return
			}
		}
	}, nil
}
