package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Record describes an OCR record in a transport-friendly format.
type Record struct {
	ID            int64  `json:"id"`
	Path          string `json:"path"`
	Checksum      string `json:"checksum"`
	Status        string `json:"status"`
	MatchedFileID *int64 `json:"matchedFileId,omitempty"`
	RetryCount    int    `json:"retryCount"`
	CreatedAt     string `json:"createdAt,omitempty"`
	LastAttempt   string `json:"lastAttempt,omitempty"`
	ProcessedAt   string `json:"processedAt,omitempty"`
}

// StoredFile describes a registered document.
type StoredFile struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Mime      string `json:"mime,omitempty"`
	Size      int64  `json:"size"`
	Checksum  string `json:"checksum,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// CycleReport summarizes one reconciliation cycle.
type CycleReport struct {
	ID         string `json:"id"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Discovered int    `json:"discovered"`
	Matched    int    `json:"matched"`
	Retried    int    `json:"retried"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

// WatcherStatus mirrors the scheduler's state.
type WatcherStatus struct {
	State          string       `json:"state"`
	WatchDir       string       `json:"watchDir"`
	IntervalMs     int64        `json:"intervalMs"`
	DisabledReason string       `json:"disabledReason,omitempty"`
	LastError      string       `json:"lastError,omitempty"`
	LastRunAt      string       `json:"lastRunAt,omitempty"`
	LastCycle      *CycleReport `json:"lastCycle,omitempty"`
}

// Counters carries the four monotonic reconciliation counters.
type Counters struct {
	Matched uint64 `json:"matched"`
	Pending uint64 `json:"pending"`
	Retried uint64 `json:"retried"`
	Failed  uint64 `json:"failed"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Watcher      WatcherStatus  `json:"watcher"`
	Counters     Counters       `json:"counters"`
	RecordStats  map[string]int `json:"recordStats"`
}

// RecordListResponse wraps a collection of records.
type RecordListResponse struct {
	Records []Record `json:"records"`
}

// ScanResponse is returned by a manual scan.
type ScanResponse struct {
	Cycle   CycleReport `json:"cycle"`
	Records []Record    `json:"records"`
}
