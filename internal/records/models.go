package records

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of an OCR record.
type Status string

const (
	StatusPending Status = "pending"
	StatusMatched Status = "matched"
	StatusFailed  Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusMatched, StatusFailed}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts user input to a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// Terminal reports whether no further transition can leave this status.
func (s Status) Terminal() bool {
	return s == StatusMatched || s == StatusFailed
}

// OcrRecord is one artifact discovered in the watch directory.
type OcrRecord struct {
	ID            int64
	Path          string
	Checksum      string
	RawContent    string
	Status        Status
	MatchedFileID *int64
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	LastAttempt   *time.Time
	RetryCount    int
}

// Clone returns a deep copy so callers can compute a transition without
// mutating a record they do not own.
func (r *OcrRecord) Clone() *OcrRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.MatchedFileID != nil {
		id := *r.MatchedFileID
		cp.MatchedFileID = &id
	}
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		cp.ProcessedAt = &t
	}
	if r.LastAttempt != nil {
		t := *r.LastAttempt
		cp.LastAttempt = &t
	}
	return &cp
}

// Validate checks the invariants that must hold for every persisted record.
func (r *OcrRecord) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if strings.TrimSpace(r.Path) == "" {
		return fmt.Errorf("%w: path is empty", ErrInvalidRecord)
	}
	switch r.Status {
	case StatusPending, StatusMatched, StatusFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, r.Status)
	}
	if (r.Status == StatusMatched) != (r.MatchedFileID != nil) {
		return fmt.Errorf("%w: matched file reference must be set exactly when status is matched", ErrInvalidRecord)
	}
	if r.Status.Terminal() != (r.ProcessedAt != nil) {
		return fmt.Errorf("%w: processed timestamp must be set exactly when status is terminal", ErrInvalidRecord)
	}
	if r.RetryCount < 0 {
		return fmt.Errorf("%w: negative retry count", ErrInvalidRecord)
	}
	return nil
}

// StoredFile is an uploaded document owned by the file-storage collaborator.
// The matcher only reads Filename.
type StoredFile struct {
	ID        int64
	Filename  string
	Path      string
	Mime      string
	Size      int64
	Checksum  string
	CreatedAt time.Time
}

// Stats counts records per status.
type Stats map[Status]int

// Total sums every status bucket.
func (s Stats) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}

// DatabaseHealth describes backend reachability for diagnostics.
type DatabaseHealth struct {
	Driver     string
	Location   string
	Reachable  bool
	RecordRows int
	FileRows   int
	Error      string
}
