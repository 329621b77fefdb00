package model

// Job is one entry drawn from the shared work list.
type Job struct {
	// Line is the list entry as stored: whitespace-trimmed, quotes intact.
	Line string `json:"line"`
	// RelPath is Line with any surrounding quote characters stripped.
	RelPath string `json:"rel_path"`
	// Path is RelPath resolved against the base directory.
	Path string `json:"path"`
}

const (
	OutcomeCommitted  = "committed"
	OutcomeSkipped    = "skipped"
	OutcomeRolledBack = "rolled_back"
	OutcomeFailed     = "failed"
)

const (
	FailureMissingInput = "missing_input"
	FailureProbe        = "probe"
	FailureBackupRename = "backup_rename"
	FailureEncode       = "encode"
	FailureCommitRename = "commit_rename"
	FailureInternal     = "internal"
)

// Attempt records one worker's handling of one claimed job. It is the
// pipeline's result value: failures are carried here, never raised.
type Attempt struct {
	Job         Job    `json:"job"`
	Worker      int    `json:"worker,omitempty"`
	Stage       string `json:"stage,omitempty"`
	Codec       string `json:"codec,omitempty"`
	Outcome     string `json:"outcome"`
	FailureKind string `json:"failure_kind,omitempty"`
	// WouldTranscode marks a dry-run skip whose codec qualified for
	// re-encoding.
	WouldTranscode bool   `json:"would_transcode,omitempty"`
	Error          string `json:"error,omitempty"`
	Warning        string `json:"warning,omitempty"`
	BackupPath     string `json:"backup_path,omitempty"`
	TempPath       string `json:"temp_path,omitempty"`
	InputBytes     int64  `json:"input_bytes,omitempty"`
	OutputBytes    int64  `json:"output_bytes,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
	FinishedAt     string `json:"finished_at,omitempty"`
}

// Succeeded reports whether the attempt needs no failure-log entry.
// A skip on an already-efficient codec counts as success.
func (a Attempt) Succeeded() bool {
	return a.Outcome == OutcomeCommitted || a.Outcome == OutcomeSkipped
}
