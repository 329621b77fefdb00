package worklist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"jellyshrink/internal/model"
)

type TakeOutcome int

const (
	// TakeClaimed: a job was claimed; Take.Job and Take.Lock are set.
	TakeClaimed TakeOutcome = iota
	// TakeNothingClaimable: lines remain but every one is currently
	// marked by some worker. The list was left untouched.
	TakeNothingClaimable
	// TakeExhausted: the list has no lines (or is gone).
	TakeExhausted
)

type Take struct {
	Outcome TakeOutcome
	Job     model.Job
	Lock    *ItemLock
}

// Store mediates all access to the shared job list artifact.
//
// The whole-file flock serializes the scan-and-remove critical section
// across processes; the mutex additionally serializes callers inside this
// process. A line leaves the list only after its item marker was already
// created, so the marker, not the list, is what makes a claim exclusive;
// the list is just a work-distribution hint.
type Store struct {
	mu      sync.Mutex
	path    string
	baseDir string
}

func NewStore(listPath, baseDir string) *Store {
	return &Store{path: listPath, baseDir: baseDir}
}

func (s *Store) Path() string    { return s.path }
func (s *Store) BaseDir() string { return s.baseDir }

// Resolve maps a list entry to the job it names. Surrounding quotes are
// stripped and the remainder is joined under the base directory.
func (s *Store) Resolve(line string) model.Job {
	rel := stripQuotes(line)
	return model.Job{
		Line:    line,
		RelPath: rel,
		Path:    filepath.Join(s.baseDir, strings.TrimLeft(rel, "/")),
	}
}

// TakeNext claims the first listed path whose marker can be created,
// removes that line, and returns the job with its held lock. When every
// line is marked elsewhere it reports TakeNothingClaimable; when no lines
// are left it truncates residual whitespace and reports TakeExhausted.
// A list that vanished mid-run also reads as exhausted; only startup
// treats a missing list as fatal.
func (s *Store) TakeNext() (Take, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return Take{Outcome: TakeExhausted}, nil
		}
		return Take{}, fmt.Errorf("open job list %s: %w", s.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return Take{}, fmt.Errorf("lock job list %s: %w", s.path, err)
	}
	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}()

	lines, err := readLines(f)
	if err != nil {
		return Take{}, fmt.Errorf("read job list %s: %w", s.path, err)
	}
	if len(lines) == 0 {
		if err := rewrite(f, nil); err != nil {
			return Take{}, fmt.Errorf("truncate job list %s: %w", s.path, err)
		}
		return Take{Outcome: TakeExhausted}, nil
	}

	for idx, line := range lines {
		job := s.Resolve(line)
		lock, held, err := AcquireItemLock(job.Path)
		if err != nil {
			return Take{}, err
		}
		if !held {
			continue
		}
		remaining := append(append([]string(nil), lines[:idx]...), lines[idx+1:]...)
		if err := rewrite(f, remaining); err != nil {
			// The marker stays: the claim happened, only the hint list
			// is in doubt. Mirrors what a crash here would leave behind.
			return Take{}, fmt.Errorf("rewrite job list %s (marker %s still held): %w", s.path, lock.Path(), err)
		}
		return Take{Outcome: TakeClaimed, Job: job, Lock: lock}, nil
	}

	return Take{Outcome: TakeNothingClaimable}, nil
}

type Entry struct {
	Job    model.Job
	Locked bool
}

// Snapshot reads the list without mutating it, under a shared lock, and
// reports each entry's current marker state.
func (s *Store) Snapshot() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open job list %s: %w", s.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err != nil {
		return nil, fmt.Errorf("lock job list %s: %w", s.path, err)
	}
	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}()

	lines, err := readLines(f)
	if err != nil {
		return nil, fmt.Errorf("read job list %s: %w", s.path, err)
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		job := s.Resolve(line)
		entries = append(entries, Entry{Job: job, Locked: IsLocked(job.Path)})
	}
	return entries, nil
}

// CountPending returns the number of non-blank lines in the list.
func (s *Store) CountPending() (int, error) {
	entries, err := s.Snapshot()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// WriteAll replaces the entire list. Used by the scanner; like every
// other mutation, it runs under the whole-file lock.
func (s *Store) WriteAll(lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openForUpdate()
	if err != nil {
		return err
	}
	defer f.Close()
	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}()

	cleaned := make([]string, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		cleaned = append(cleaned, line)
	}
	if err := rewrite(f, cleaned); err != nil {
		return fmt.Errorf("rewrite job list %s: %w", s.path, err)
	}
	return nil
}

// Append adds entries at the end of the list, skipping blanks and lines
// already present. Used to requeue previously failed paths.
func (s *Store) Append(lines ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openForUpdate()
	if err != nil {
		return err
	}
	defer f.Close()
	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}()

	existing, err := readLines(f)
	if err != nil {
		return fmt.Errorf("read job list %s: %w", s.path, err)
	}
	seen := make(map[string]bool, len(existing))
	for _, line := range existing {
		seen[line] = true
	}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		existing = append(existing, line)
	}
	if err := rewrite(f, existing); err != nil {
		return fmt.Errorf("rewrite job list %s: %w", s.path, err)
	}
	return nil
}

// Remove deletes the first entry whose trimmed text equals line and
// reports whether one was found.
func (s *Store) Remove(line string) (bool, error) {
	target := strings.TrimSpace(line)
	if target == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.openForUpdate()
	if err != nil {
		return false, err
	}
	defer f.Close()
	defer func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}()

	existing, err := readLines(f)
	if err != nil {
		return false, fmt.Errorf("read job list %s: %w", s.path, err)
	}
	found := false
	remaining := make([]string, 0, len(existing))
	for _, l := range existing {
		if !found && l == target {
			found = true
			continue
		}
		remaining = append(remaining, l)
	}
	if !found {
		return false, nil
	}
	if err := rewrite(f, remaining); err != nil {
		return false, fmt.Errorf("rewrite job list %s: %w", s.path, err)
	}
	return true, nil
}

func (s *Store) openForUpdate() (*os.File, error) {
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job list %s: %w", s.path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock job list %s: %w", s.path, err)
	}
	return f, nil
}

func readLines(f *os.File) ([]string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	raw := strings.Split(string(data), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		lines = append(lines, t)
	}
	return lines, nil
}

// rewrite replaces the file's content in place: seek, write, truncate.
// Replacing the file via temp+rename would swap the inode that waiting
// processes hold their flock on, so in-place is load-bearing here.
func rewrite(f *os.File, lines []string) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var n int64
	for _, line := range lines {
		wrote, err := f.WriteString(line + "\n")
		if err != nil {
			return err
		}
		n += int64(wrote)
	}
	return f.Truncate(n)
}

func stripQuotes(line string) string {
	return strings.Trim(strings.Trim(line, `"`), `'`)
}
