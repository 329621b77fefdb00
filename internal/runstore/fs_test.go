package runstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSONReadJSONRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "report.json")

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	want := payload{Name: "scan", Count: 3}

	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("write JSON: %v", err)
	}
	var got payload
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestWriteBytesLeavesNoTempFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "out.json")

	if err := WriteBytes(path, []byte("{}\n")); err != nil {
		t.Fatalf("write bytes: %v", err)
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.json" {
		t.Fatalf("expected only out.json in dir, got %d entries", len(entries))
	}
}

func TestLatestReportsOrderAndTolerateMissingDir(t *testing.T) {
	tmp := t.TempDir()

	latest, err := LatestScanReport(filepath.Join(tmp, "missing"))
	if err != nil {
		t.Fatalf("latest on missing dir: %v", err)
	}
	if latest != "" {
		t.Fatalf("expected empty latest for missing dir, got %q", latest)
	}

	// Report IDs are timestamp-prefixed; lexicographic order is creation order.
	first := ScanReportPath(tmp, "20240101T000000Z_aaaa1111")
	second := ScanReportPath(tmp, "20240102T000000Z_bbbb2222")
	for _, p := range []string{first, second} {
		if err := WriteJSON(p, map[string]string{"id": filepath.Base(p)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := WriteJSON(RunReportPath(tmp, "20240103T000000Z_cccc3333"), map[string]int{}); err != nil {
		t.Fatal(err)
	}

	latest, err = LatestScanReport(tmp)
	if err != nil {
		t.Fatalf("latest scan report: %v", err)
	}
	if latest != second {
		t.Fatalf("expected %q as latest scan report, got %q", second, latest)
	}

	scans, err := ListScanReports(tmp)
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 {
		t.Fatalf("expected 2 scan reports, got %d", len(scans))
	}
}
