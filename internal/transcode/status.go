package transcode

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"jellyshrink/internal/model"
	"jellyshrink/internal/runstore"
	"jellyshrink/internal/worklist"
)

type StatusOptions struct {
	ListPath       string
	BaseDir        string
	FailureLogPath string
	ReportsDir     string
}

type StatusResult struct {
	ListPath       string       `json:"list_path"`
	BaseDir        string       `json:"base_dir"`
	ListExists     bool         `json:"list_exists"`
	Pending        int          `json:"pending_count"`
	HeldMarkers    int          `json:"held_marker_count"`
	FailureLogPath string       `json:"failure_log_path"`
	Failures       int          `json:"failure_count"`
	State          string       `json:"state"`
	LastScan       *ScanSummary `json:"last_scan,omitempty"`
	LastRun        *RunSummary  `json:"last_run,omitempty"`
}

type ScanSummary struct {
	ScanID              string `json:"scan_id"`
	ReportPath          string `json:"report_path"`
	FinishedAt          string `json:"finished_at,omitempty"`
	ItemsSeen           int    `json:"items_seen"`
	InefficientCount    int    `json:"inefficient_count"`
	EstimatedSavedBytes int64  `json:"estimated_saved_bytes"`
	Listed              int    `json:"listed,omitempty"`
}

type RunSummary struct {
	RunID      string `json:"run_id"`
	ReportPath string `json:"report_path"`
	FinishedAt string `json:"finished_at,omitempty"`
	Workers    int    `json:"workers"`
	DryRun     bool   `json:"dry_run,omitempty"`
	Processed  int    `json:"processed"`
	Committed  int    `json:"committed"`
	Failed     int    `json:"failed"`
	SavedBytes int64  `json:"saved_bytes"`
}

// Status rolls up the queue, the failure log, and the latest report
// artifacts into one view. It only ever reads: a missing list or log is
// a state to report, not an error.
func Status(opts StatusOptions) (StatusResult, error) {
	listPath := strings.TrimSpace(opts.ListPath)
	if listPath == "" {
		return StatusResult{}, fmt.Errorf("list path is required")
	}
	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		return StatusResult{}, fmt.Errorf("base directory is required")
	}
	failLogPath := strings.TrimSpace(opts.FailureLogPath)
	if failLogPath == "" {
		failLogPath = "transcode_failures.log"
	}

	result := StatusResult{
		ListPath:       listPath,
		BaseDir:        baseDir,
		FailureLogPath: failLogPath,
	}

	store := worklist.NewStore(listPath, baseDir)
	entries, err := store.Snapshot()
	switch {
	case err == nil:
		result.ListExists = true
		result.Pending = len(entries)
		for _, e := range entries {
			if e.Locked {
				result.HeldMarkers++
			}
		}
	case errors.Is(err, os.ErrNotExist):
		// Reported via ListExists.
	default:
		return StatusResult{}, err
	}

	failures, err := NewFailureLog(failLogPath, baseDir).Entries()
	if err != nil {
		return StatusResult{}, fmt.Errorf("read failure log %s: %w", failLogPath, err)
	}
	result.Failures = len(failures)

	reportsDir := strings.TrimSpace(opts.ReportsDir)
	if reportsDir != "" {
		scan, err := latestScanSummary(reportsDir)
		if err != nil {
			return StatusResult{}, err
		}
		result.LastScan = scan

		run, err := latestRunSummary(reportsDir)
		if err != nil {
			return StatusResult{}, err
		}
		result.LastRun = run
	}

	result.State = summarizeQueueState(result)
	return result, nil
}

func latestScanSummary(reportsDir string) (*ScanSummary, error) {
	path, err := runstore.LatestScanReport(reportsDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	var report model.ScanReport
	if err := runstore.ReadJSON(path, &report); err != nil {
		return nil, err
	}
	return &ScanSummary{
		ScanID:              report.ScanID,
		ReportPath:          path,
		FinishedAt:          report.FinishedAt,
		ItemsSeen:           report.ItemsSeen,
		InefficientCount:    report.InefficientCount,
		EstimatedSavedBytes: report.EstimatedSavedBytes,
		Listed:              report.Listed,
	}, nil
}

func latestRunSummary(reportsDir string) (*RunSummary, error) {
	path, err := runstore.LatestRunReport(reportsDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}
	var report model.RunReport
	if err := runstore.ReadJSON(path, &report); err != nil {
		return nil, err
	}
	return &RunSummary{
		RunID:      report.RunID,
		ReportPath: path,
		FinishedAt: report.FinishedAt,
		Workers:    report.Workers,
		DryRun:     report.DryRun,
		Processed:  report.Processed,
		Committed:  report.Committed,
		Failed:     report.Failed,
		SavedBytes: report.SavedBytes,
	}, nil
}

func summarizeQueueState(r StatusResult) string {
	switch {
	case !r.ListExists:
		return "no_list"
	case r.HeldMarkers > 0:
		return "in_progress"
	case r.Pending > 0:
		return "queued"
	case r.Failures > 0:
		return "has_failures"
	default:
		return "drained"
	}
}
