package transcode

import (
	"os"
	"path/filepath"
	"testing"

	"jellyshrink/internal/model"
	"jellyshrink/internal/runstore"
	"jellyshrink/internal/worklist"
)

func TestStatus_RollsUpQueueFailuresAndReports(t *testing.T) {
	base, listPath := runFixture(t)

	locked := mediaFile(t, filepath.Join(base, "movies"), "a_h264.mkv", "aaaa")
	mediaFile(t, filepath.Join(base, "movies"), "b_vc1.mkv", "bbbb")
	lines := "movies/a_h264.mkv\nmovies/b_vc1.mkv\n"
	if err := os.WriteFile(listPath, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, held, err := worklist.AcquireItemLock(locked); err != nil || !held {
		t.Fatalf("acquire marker: held=%v err=%v", held, err)
	}

	failLog := filepath.Join(filepath.Dir(listPath), "failures.log")
	if err := NewFailureLog(failLog, base).Record(locked); err != nil {
		t.Fatal(err)
	}

	reportsDir := filepath.Join(filepath.Dir(listPath), "reports")
	scanReport := model.ScanReport{
		ScanID:              "scan-1",
		FinishedAt:          "2026-01-02T03:04:05Z",
		ItemsSeen:           120,
		InefficientCount:    40,
		EstimatedSavedBytes: 1 << 30,
		Listed:              40,
	}
	if err := runstore.WriteJSON(runstore.ScanReportPath(reportsDir, scanReport.ScanID), scanReport); err != nil {
		t.Fatal(err)
	}
	runReport := model.RunReport{
		RunID:      "run-1",
		FinishedAt: "2026-01-03T03:04:05Z",
		Workers:    4,
		Processed:  10,
		Committed:  8,
		Failed:     1,
		SavedBytes: 512,
	}
	if err := runstore.WriteJSON(runstore.RunReportPath(reportsDir, runReport.RunID), runReport); err != nil {
		t.Fatal(err)
	}

	result, err := Status(StatusOptions{
		ListPath:       listPath,
		BaseDir:        base,
		FailureLogPath: failLog,
		ReportsDir:     reportsDir,
	})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}

	if !result.ListExists || result.Pending != 2 || result.HeldMarkers != 1 {
		t.Fatalf("queue view = exists %v pending %d held %d, want true/2/1",
			result.ListExists, result.Pending, result.HeldMarkers)
	}
	if result.Failures != 1 {
		t.Fatalf("failures = %d, want 1", result.Failures)
	}
	if result.State != "in_progress" {
		t.Fatalf("state = %q, want in_progress", result.State)
	}
	if result.LastScan == nil || result.LastScan.ScanID != "scan-1" || result.LastScan.ItemsSeen != 120 {
		t.Fatalf("last scan summary = %+v", result.LastScan)
	}
	if result.LastRun == nil || result.LastRun.RunID != "run-1" || result.LastRun.Committed != 8 {
		t.Fatalf("last run summary = %+v", result.LastRun)
	}
	if result.LastRun.ReportPath != runstore.RunReportPath(reportsDir, "run-1") {
		t.Fatalf("run report path = %q", result.LastRun.ReportPath)
	}
}

func TestStatus_MissingListReportedNotFatal(t *testing.T) {
	base, listPath := runFixture(t)

	result, err := Status(StatusOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.ListExists {
		t.Fatal("list reported as existing")
	}
	if result.State != "no_list" {
		t.Fatalf("state = %q, want no_list", result.State)
	}
	if result.Pending != 0 || result.HeldMarkers != 0 {
		t.Fatalf("counts = pending %d held %d, want 0/0", result.Pending, result.HeldMarkers)
	}
}

func TestStatus_QueueStates(t *testing.T) {
	base, listPath := runFixture(t)
	if err := os.WriteFile(listPath, []byte("movies/a.mkv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Status(StatusOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.State != "queued" {
		t.Fatalf("state = %q, want queued", result.State)
	}

	if err := os.WriteFile(listPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	result, err = Status(StatusOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.State != "drained" {
		t.Fatalf("state = %q, want drained", result.State)
	}
	if result.LastRun != nil || result.LastScan != nil {
		t.Fatal("report summaries set without a reports dir")
	}
}
