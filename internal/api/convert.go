package api

import (
	"time"

	"github.com/felix-dieterle/mycontracts/internal/reconcile"
	"github.com/felix-dieterle/mycontracts/internal/records"
	"github.com/felix-dieterle/mycontracts/internal/watcher"
)

// FromRecord converts a record to its API representation.
func FromRecord(rec *records.OcrRecord) Record {
	if rec == nil {
		return Record{}
	}
	dto := Record{
		ID:         rec.ID,
		Path:       rec.Path,
		Checksum:   rec.Checksum,
		Status:     string(rec.Status),
		RetryCount: rec.RetryCount,
		CreatedAt:  formatTime(rec.CreatedAt),
	}
	if rec.MatchedFileID != nil {
		id := *rec.MatchedFileID
		dto.MatchedFileID = &id
	}
	if rec.LastAttempt != nil {
		dto.LastAttempt = formatTime(*rec.LastAttempt)
	}
	if rec.ProcessedAt != nil {
		dto.ProcessedAt = formatTime(*rec.ProcessedAt)
	}
	return dto
}

// FromRecords converts a slice, never returning nil.
func FromRecords(recs []*records.OcrRecord) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		out = append(out, FromRecord(rec))
	}
	return out
}

// FromStoredFile converts a stored file.
func FromStoredFile(file records.StoredFile) StoredFile {
	return StoredFile{
		ID:        file.ID,
		Filename:  file.Filename,
		Path:      file.Path,
		Mime:      file.Mime,
		Size:      file.Size,
		Checksum:  file.Checksum,
		CreatedAt: formatTime(file.CreatedAt),
	}
}

// FromCycleReport converts a reconciler cycle report.
func FromCycleReport(report reconcile.CycleReport) CycleReport {
	return CycleReport{
		ID:         report.ID,
		StartedAt:  formatTime(report.StartedAt),
		FinishedAt: formatTime(report.FinishedAt),
		DurationMs: report.Duration().Milliseconds(),
		Discovered: report.Discovered,
		Matched:    report.Matched,
		Retried:    report.Retried,
		Failed:     report.Failed,
		Skipped:    report.Skipped,
		Errors:     report.Errors,
	}
}

// FromWatcherStatus converts a watcher summary.
func FromWatcherStatus(summary watcher.StatusSummary) WatcherStatus {
	dto := WatcherStatus{
		State:          summary.State.String(),
		WatchDir:       summary.WatchDir,
		IntervalMs:     summary.Interval.Milliseconds(),
		DisabledReason: summary.DisabledReason,
		LastError:      summary.LastError,
	}
	if summary.LastRunAt != nil {
		dto.LastRunAt = formatTime(*summary.LastRunAt)
	}
	if summary.LastReport != nil {
		cycle := FromCycleReport(*summary.LastReport)
		dto.LastCycle = &cycle
	}
	return dto
}

// FromCounters converts a counter snapshot.
func FromCounters(snapshot reconcile.CounterSnapshot) Counters {
	return Counters{
		Matched: snapshot.Matched,
		Pending: snapshot.Pending,
		Retried: snapshot.Retried,
		Failed:  snapshot.Failed,
	}
}

// MergeRecordStats keys stats by status string and fills in every status so
// consumers always see all three buckets.
func MergeRecordStats(stats records.Stats) map[string]int {
	out := make(map[string]int, len(records.AllStatuses()))
	for _, status := range records.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
