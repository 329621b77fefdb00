package worklist

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, lines string) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "movies"), 0o755); err != nil {
		t.Fatal(err)
	}
	listPath := filepath.Join(base, "transcode_list.txt")
	if err := os.WriteFile(listPath, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewStore(listPath, base), base
}

func readList(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read list: %v", err)
	}
	return string(data)
}

func TestTakeNext_ClaimsInOrderAndRewritesList(t *testing.T) {
	store, base := newTestStore(t, "movies/a.mkv\nmovies/b.mkv\nmovies/c.mkv\n")

	take, err := store.TakeNext()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if take.Outcome != TakeClaimed {
		t.Fatalf("outcome = %d, want claimed", take.Outcome)
	}
	wantPath := filepath.Join(base, "movies", "a.mkv")
	if take.Job.Path != wantPath {
		t.Fatalf("claimed path = %q, want %q", take.Job.Path, wantPath)
	}
	if take.Lock == nil {
		t.Fatal("claimed take carries no lock")
	}
	if _, err := os.Stat(wantPath + LockSuffix); err != nil {
		t.Fatalf("marker missing after claim: %v", err)
	}

	got := readList(t, store.Path())
	want := "movies/b.mkv\nmovies/c.mkv\n"
	if got != want {
		t.Fatalf("list after claim = %q, want %q", got, want)
	}
	if err := take.Lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestTakeNext_SkipsHeldMarkers(t *testing.T) {
	store, base := newTestStore(t, "movies/a.mkv\nmovies/b.mkv\n")

	held, ok, err := AcquireItemLock(filepath.Join(base, "movies", "a.mkv"))
	if err != nil || !ok {
		t.Fatalf("pre-lock a.mkv: held=%v err=%v", ok, err)
	}
	defer held.Release()

	take, err := store.TakeNext()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if take.Outcome != TakeClaimed {
		t.Fatalf("outcome = %d, want claimed", take.Outcome)
	}
	if want := filepath.Join(base, "movies", "b.mkv"); take.Job.Path != want {
		t.Fatalf("claimed path = %q, want %q", take.Job.Path, want)
	}
	defer take.Lock.Release()

	// The held line stays queued for whoever ends up releasing it.
	if got := readList(t, store.Path()); got != "movies/a.mkv\n" {
		t.Fatalf("list after claim = %q, want %q", got, "movies/a.mkv\n")
	}
}

func TestTakeNext_AllHeldLeavesListUntouched(t *testing.T) {
	content := "movies/a.mkv\nmovies/b.mkv\n"
	store, base := newTestStore(t, content)

	for _, name := range []string{"a.mkv", "b.mkv"} {
		lock, ok, err := AcquireItemLock(filepath.Join(base, "movies", name))
		if err != nil || !ok {
			t.Fatalf("pre-lock %s: held=%v err=%v", name, ok, err)
		}
		defer lock.Release()
	}

	take, err := store.TakeNext()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if take.Outcome != TakeNothingClaimable {
		t.Fatalf("outcome = %d, want nothing claimable", take.Outcome)
	}
	if got := readList(t, store.Path()); got != content {
		t.Fatalf("list changed while all lines held: %q", got)
	}
}

func TestTakeNext_EmptyListTruncatesWhitespace(t *testing.T) {
	store, _ := newTestStore(t, "\n  \n\t\n")

	take, err := store.TakeNext()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if take.Outcome != TakeExhausted {
		t.Fatalf("outcome = %d, want exhausted", take.Outcome)
	}
	if got := readList(t, store.Path()); got != "" {
		t.Fatalf("residual whitespace not truncated: %q", got)
	}

	// A second look at the now empty file behaves the same.
	take, err = store.TakeNext()
	if err != nil {
		t.Fatalf("second take: %v", err)
	}
	if take.Outcome != TakeExhausted {
		t.Fatalf("second outcome = %d, want exhausted", take.Outcome)
	}
}

func TestTakeNext_MissingListIsExhausted(t *testing.T) {
	base := t.TempDir()
	store := NewStore(filepath.Join(base, "gone.txt"), base)

	take, err := store.TakeNext()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if take.Outcome != TakeExhausted {
		t.Fatalf("outcome = %d, want exhausted", take.Outcome)
	}
}

func TestResolve_QuotesAndLeadingSlashes(t *testing.T) {
	store, base := newTestStore(t, "")

	cases := []struct {
		line string
		want string
	}{
		{"movies/plain.mkv", filepath.Join(base, "movies", "plain.mkv")},
		{`"movies/double quoted.mkv"`, filepath.Join(base, "movies", "double quoted.mkv")},
		{`'movies/single quoted.mkv'`, filepath.Join(base, "movies", "single quoted.mkv")},
		{`"'movies/both.mkv'"`, filepath.Join(base, "movies", "both.mkv")},
		{"/movies/rooted.mkv", filepath.Join(base, "movies", "rooted.mkv")},
		{"//movies/doubly rooted.mkv", filepath.Join(base, "movies", "doubly rooted.mkv")},
	}
	for _, tc := range cases {
		job := store.Resolve(tc.line)
		if job.Path != tc.want {
			t.Fatalf("Resolve(%q).Path = %q, want %q", tc.line, job.Path, tc.want)
		}
		if job.Line != tc.line {
			t.Fatalf("Resolve(%q).Line = %q, want original line", tc.line, job.Line)
		}
	}
}

func TestTakeNext_RewritePreservesOriginalQuoting(t *testing.T) {
	store, base := newTestStore(t, "movies/a.mkv\n\"movies/b.mkv\"\n'movies/c.mkv'\n")

	take, err := store.TakeNext()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if take.Outcome != TakeClaimed {
		t.Fatalf("outcome = %d, want claimed", take.Outcome)
	}
	defer take.Lock.Release()

	if want := filepath.Join(base, "movies", "a.mkv"); take.Job.Path != want {
		t.Fatalf("claimed path = %q, want %q", take.Job.Path, want)
	}
	got := readList(t, store.Path())
	want := "\"movies/b.mkv\"\n'movies/c.mkv'\n"
	if got != want {
		t.Fatalf("rewritten list = %q, want quoting preserved %q", got, want)
	}
}

func TestTakeNext_ConcurrentClaimsAreExclusive(t *testing.T) {
	var lines string
	names := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		name := filepath.Join("movies", string(rune('a'+i))+".mkv")
		names = append(names, name)
		lines += name + "\n"
	}
	store, base := newTestStore(t, lines)

	// A second store simulates another process with its own descriptor
	// on the same list file.
	other := NewStore(store.Path(), base)

	var (
		mu      sync.Mutex
		claimed = map[string]int{}
		wg      sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		st := store
		if i%2 == 1 {
			st = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				take, err := st.TakeNext()
				if err != nil {
					t.Errorf("take: %v", err)
					return
				}
				switch take.Outcome {
				case TakeClaimed:
					mu.Lock()
					claimed[take.Job.Path]++
					mu.Unlock()
					if err := take.Lock.Release(); err != nil {
						t.Errorf("release: %v", err)
						return
					}
				case TakeNothingClaimable:
					continue
				case TakeExhausted:
					return
				}
			}
		}()
	}
	wg.Wait()

	if len(claimed) != len(names) {
		t.Fatalf("claimed %d distinct paths, want %d", len(claimed), len(names))
	}
	for path, n := range claimed {
		if n != 1 {
			t.Fatalf("path %q claimed %d times", path, n)
		}
	}
	if got := readList(t, store.Path()); got != "" {
		t.Fatalf("list not drained: %q", got)
	}
}

func TestWriteAllAndAppend(t *testing.T) {
	store, _ := newTestStore(t, "")

	if err := store.WriteAll([]string{"movies/a.mkv", "  ", "movies/b.mkv"}); err != nil {
		t.Fatalf("write all: %v", err)
	}
	if got := readList(t, store.Path()); got != "movies/a.mkv\nmovies/b.mkv\n" {
		t.Fatalf("list after WriteAll = %q", got)
	}

	if err := store.Append("movies/b.mkv", "movies/c.mkv", "movies/c.mkv"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := readList(t, store.Path())
	want := "movies/a.mkv\nmovies/b.mkv\nmovies/c.mkv\n"
	if got != want {
		t.Fatalf("list after Append = %q, want %q", got, want)
	}
}

func TestRemove(t *testing.T) {
	store, _ := newTestStore(t, "movies/a.mkv\nmovies/b.mkv\n")

	removed, err := store.Remove("movies/a.mkv")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatal("expected line to be removed")
	}
	if got := readList(t, store.Path()); got != "movies/b.mkv\n" {
		t.Fatalf("list after remove = %q", got)
	}

	removed, err = store.Remove("movies/zzz.mkv")
	if err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if removed {
		t.Fatal("removing an absent line reported success")
	}
}

func TestSnapshotReportsMarkerState(t *testing.T) {
	store, base := newTestStore(t, "movies/a.mkv\nmovies/b.mkv\n")

	lock, ok, err := AcquireItemLock(filepath.Join(base, "movies", "b.mkv"))
	if err != nil || !ok {
		t.Fatalf("pre-lock: held=%v err=%v", ok, err)
	}
	defer lock.Release()

	entries, err := store.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(entries))
	}
	if entries[0].Locked {
		t.Fatalf("entry %q unexpectedly locked", entries[0].Job.Line)
	}
	if !entries[1].Locked {
		t.Fatalf("entry %q should be locked", entries[1].Job.Line)
	}

	n, err := store.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if n != 2 {
		t.Fatalf("pending = %d, want 2", n)
	}
}
