// Package matcher associates OCR artifacts with stored files by base name.
//
// An artifact "contract1_ocr.json" has base identifier "contract1" and
// matches a stored file "contract1.pdf". Comparison is exact and
// case-sensitive. When several stored files share the base name the one with
// the lowest ID wins, regardless of the order the caller passes them in.
package matcher

import (
	"strings"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

// BaseIdentifier strips the marker suffix from an artifact file name.
func BaseIdentifier(artifactName, suffix string) string {
	return strings.TrimSuffix(artifactName, suffix)
}

// StripExtension removes the text after the last dot. A leading dot does not
// count as an extension separator, so ".env" stays ".env".
func StripExtension(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx <= 0 {
		return filename
	}
	return filename[:idx]
}

// Result describes the outcome of one match attempt.
type Result struct {
	File       *records.StoredFile
	Candidates int
}

// Matched reports whether a stored file was found.
func (r Result) Matched() bool { return r.File != nil }

// Ambiguous reports whether more than one stored file shared the base name.
func (r Result) Ambiguous() bool { return r.Candidates > 1 }

// Match scans files once and returns the lowest-ID stored file whose
// extension-stripped name equals baseID.
func Match(baseID string, files []records.StoredFile) Result {
	var result Result
	if baseID == "" {
		return result
	}
	for i := range files {
		if StripExtension(files[i].Filename) != baseID {
			continue
		}
		result.Candidates++
		if result.File == nil || files[i].ID < result.File.ID {
			result.File = &files[i]
		}
	}
	return result
}
