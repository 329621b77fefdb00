package transcode

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FailureLog appends one line per attempt that did not end in a commit
// or an intentional skip. Lines mirror the job list shape: relative to
// the base directory when the path is inside it.
type FailureLog struct {
	mu      sync.Mutex
	path    string
	baseDir string
}

func NewFailureLog(path, baseDir string) *FailureLog {
	return &FailureLog{path: path, baseDir: baseDir}
}

func (l *FailureLog) Path() string { return l.path }

// Record appends the failed path as a single line. O_APPEND keeps
// lines from concurrent workers whole.
func (l *FailureLog) Record(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failure log %s: %w", l.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(l.Entry(path) + "\n"); err != nil {
		return fmt.Errorf("append failure log %s: %w", l.path, err)
	}
	return nil
}

// Entry strips the base directory prefix, falling back to the full
// path for files outside it.
func (l *FailureLog) Entry(path string) string {
	base := strings.TrimSpace(l.baseDir)
	if base == "" {
		return path
	}
	prefix := strings.TrimSuffix(base, string(filepath.Separator)) + string(filepath.Separator)
	if strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, prefix)
	}
	return path
}

// Entries returns the logged paths in order. A missing log reads as
// empty.
func (l *FailureLog) Entries() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
