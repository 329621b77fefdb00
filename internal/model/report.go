package model

// CodecStat aggregates the library items sharing one video codec.
type CodecStat struct {
	Codec string `json:"codec"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// ScanReport is the persisted result of one library scan.
type ScanReport struct {
	ScanID              string      `json:"scan_id"`
	Version             string      `json:"version,omitempty"`
	StartedAt           string      `json:"started_at"`
	FinishedAt          string      `json:"finished_at"`
	ServerURL           string      `json:"server_url"`
	UserID              string      `json:"user_id"`
	ItemsSeen           int         `json:"items_seen"`
	ItemsSkipped        int         `json:"items_skipped"`
	Codecs              []CodecStat `json:"codecs"`
	InefficientCount    int         `json:"inefficient_count"`
	InefficientBytes    int64       `json:"inefficient_bytes"`
	EstimatedSavedBytes int64       `json:"estimated_saved_bytes"`
	ListPath            string      `json:"list_path,omitempty"`
	Listed              int         `json:"listed,omitempty"`
}

// RunReport is the persisted result of one transcode run.
type RunReport struct {
	RunID          string    `json:"run_id"`
	Version        string    `json:"version,omitempty"`
	StartedAt      string    `json:"started_at"`
	FinishedAt     string    `json:"finished_at"`
	ListPath       string    `json:"list_path"`
	BaseDir        string    `json:"base_dir"`
	Workers        int       `json:"workers"`
	DryRun         bool      `json:"dry_run,omitempty"`
	Processed      int       `json:"processed"`
	Committed      int       `json:"committed"`
	Skipped        int       `json:"skipped"`
	WouldTranscode int       `json:"would_transcode,omitempty"`
	RolledBack     int       `json:"rolled_back"`
	Failed         int       `json:"failed"`
	InputBytes     int64     `json:"input_bytes"`
	OutputBytes    int64     `json:"output_bytes"`
	SavedBytes     int64     `json:"saved_bytes"`
	WorkerErrors   []string  `json:"worker_errors,omitempty"`
	Attempts       []Attempt `json:"attempts"`
}
