package reconcile

import "time"

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Discovered int
	Matched    int
	Retried    int
	Failed     int
	Skipped    int
	Errors     int
}

// Duration is the wall time the cycle took.
func (r CycleReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Changed reports whether the cycle created or transitioned any record.
func (r CycleReport) Changed() bool {
	return r.Discovered+r.Matched+r.Retried+r.Failed > 0
}
