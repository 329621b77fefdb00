package worklist

import (
	"fmt"
	"os"
)

// LockSuffix is appended to a resolved media path to form its claim marker.
const LockSuffix = ".transcode.lock"

// ItemLock is exclusive processing rights for one media path. The marker
// file's existence is the lock; the struct only remembers where it lives.
type ItemLock struct {
	path string
}

func LockPath(target string) string {
	return target + LockSuffix
}

// AcquireItemLock tries to create the zero-byte marker for target.
// held=false with a nil error means another worker owns the path.
func AcquireItemLock(target string) (*ItemLock, bool, error) {
	lockPath := LockPath(target)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("create item lock %s: %w", lockPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(lockPath)
		return nil, false, fmt.Errorf("close item lock %s: %w", lockPath, err)
	}
	return &ItemLock{path: lockPath}, true, nil
}

func (l *ItemLock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release removes the marker. An already-absent marker is not an error,
// so releasing twice is safe.
func (l *ItemLock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release item lock %s: %w", l.path, err)
	}
	return nil
}

// IsLocked reports whether target's claim marker currently exists.
func IsLocked(target string) bool {
	_, err := os.Stat(LockPath(target))
	return err == nil
}

// RemoveLock clears target's marker regardless of owner. Maintenance use
// only: a live worker holding the marker is not consulted.
func RemoveLock(target string) error {
	lockPath := LockPath(target)
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove item lock %s: %w", lockPath, err)
	}
	return nil
}
