package transcode

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jellyshrink/internal/worklist"
)

func TestListLocks_ReportsHeldMarkersWithAge(t *testing.T) {
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
	markerPath := worklist.LockPath(locked)
	old := time.Now().Add(-90 * time.Second)
	if err := os.Chtimes(markerPath, old, old); err != nil {
		t.Fatal(err)
	}

	result, err := ListLocks(LocksOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if result.Pending != 2 {
		t.Fatalf("pending = %d, want 2", result.Pending)
	}
	if len(result.Held) != 1 {
		t.Fatalf("held = %d, want 1", len(result.Held))
	}
	got := result.Held[0]
	if got.Line != "movies/a_h264.mkv" || got.Path != locked || got.MarkerPath != markerPath {
		t.Fatalf("held lock = %+v", got)
	}
	age, err := time.ParseDuration(got.Age)
	if err != nil {
		t.Fatalf("parse age %q: %v", got.Age, err)
	}
	if age < 60*time.Second {
		t.Fatalf("age = %v, want at least a minute", age)
	}
	if got.MarkedAt == "" {
		t.Fatal("marked_at not set")
	}
}

func TestListLocks_EmptyWhenNothingHeld(t *testing.T) {
	base, listPath := runFixture(t)
	if err := os.WriteFile(listPath, []byte("movies/a.mkv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := ListLocks(LocksOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if len(result.Held) != 0 {
		t.Fatalf("held = %+v, want none", result.Held)
	}
}

func TestListLocks_MissingListReadsEmpty(t *testing.T) {
	base, listPath := runFixture(t)

	result, err := ListLocks(LocksOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("list locks failed: %v", err)
	}
	if result.Pending != 0 || len(result.Held) != 0 {
		t.Fatalf("result = %+v, want empty", result)
	}

	cleared, err := ClearLocks(LocksOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("clear locks failed: %v", err)
	}
	if len(cleared.Cleared) != 0 {
		t.Fatalf("cleared = %+v, want none", cleared.Cleared)
	}
}

func TestClearLocks_RemovesMarkersKeepsList(t *testing.T) {
	base, listPath := runFixture(t)

	locked := mediaFile(t, filepath.Join(base, "movies"), "a_h264.mkv", "aaaa")
	lines := "movies/a_h264.mkv\nmovies/b_vc1.mkv\n"
	if err := os.WriteFile(listPath, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, held, err := worklist.AcquireItemLock(locked); err != nil || !held {
		t.Fatalf("acquire marker: held=%v err=%v", held, err)
	}

	result, err := ClearLocks(LocksOptions{ListPath: listPath, BaseDir: base})
	if err != nil {
		t.Fatalf("clear locks failed: %v", err)
	}
	if len(result.Cleared) != 1 || result.Cleared[0].Path != locked {
		t.Fatalf("cleared = %+v", result.Cleared)
	}
	if worklist.IsLocked(locked) {
		t.Fatal("marker still present after clear")
	}

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != lines {
		t.Fatalf("list changed by clear: %q", data)
	}
}
