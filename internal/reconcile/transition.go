package reconcile

import (
	"fmt"
	"time"

	"github.com/felix-dieterle/mycontracts/internal/records"
)

// Outcome names the transition a match attempt produced.
type Outcome int

const (
	// OutcomeRetried leaves the record pending with one more attempt counted.
	OutcomeRetried Outcome = iota + 1
	// OutcomeMatched links the record to a stored file.
	OutcomeMatched
	// OutcomeFailed gives up after the retry budget is spent.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRetried:
		return "retried"
	case OutcomeMatched:
		return "matched"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transition is the next persisted state of a record.
type Transition struct {
	Record  *records.OcrRecord
	Outcome Outcome
}

// Due reports whether a pending record may be attempted at now. A record
// that was never attempted is always due; otherwise the backoff window since
// the last attempt must have elapsed.
func Due(rec *records.OcrRecord, now time.Time, backoff time.Duration) bool {
	if rec == nil || rec.Status != records.StatusPending {
		return false
	}
	if rec.LastAttempt == nil {
		return true
	}
	return !now.Before(rec.LastAttempt.Add(backoff))
}

// Apply computes the state after one match attempt. match is nil when no
// stored file matched. Every attempt stamps lastAttempt and increments the
// retry count; the record fails once that count reaches maxRetries.
// rec is not modified.
func Apply(rec *records.OcrRecord, match *records.StoredFile, now time.Time, maxRetries int) (Transition, error) {
	if rec == nil {
		return Transition{}, fmt.Errorf("%w: nil record", records.ErrInvalidRecord)
	}
	if rec.Status != records.StatusPending {
		return Transition{}, fmt.Errorf("ocr record %d is %s: %w", rec.ID, rec.Status, records.ErrTerminal)
	}

	next := rec.Clone()
	attempt := now
	next.LastAttempt = &attempt
	next.RetryCount = rec.RetryCount + 1

	switch {
	case match != nil:
		id := match.ID
		next.Status = records.StatusMatched
		next.MatchedFileID = &id
		next.ProcessedAt = &attempt
		return Transition{Record: next, Outcome: OutcomeMatched}, nil
	case next.RetryCount >= maxRetries:
		next.Status = records.StatusFailed
		next.ProcessedAt = &attempt
		return Transition{Record: next, Outcome: OutcomeFailed}, nil
	default:
		return Transition{Record: next, Outcome: OutcomeRetried}, nil
	}
}
