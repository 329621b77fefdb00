package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	scanLockDirName   = ".scan.lock"
	scanLockOwnerFile = "owner.json"
)

// ScanLock guards the reports directory against two scanners rewriting
// the same job list at once. It is a directory-creation lock, unrelated
// to the per-item markers the workers use.
type ScanLock struct {
	lockDir string
}

type scanLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func AcquireScanLock(reportsDir string) (ScanLock, error) {
	target := strings.TrimSpace(reportsDir)
	if target == "" {
		return ScanLock{}, fmt.Errorf("reports directory is required")
	}
	if err := Mkdir(target); err != nil {
		return ScanLock{}, err
	}

	lockDir := filepath.Join(target, scanLockDirName)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			ownerPath := filepath.Join(lockDir, scanLockOwnerFile)
			var owner scanLockOwner
			if readErr := ReadJSON(ownerPath, &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return ScanLock{}, fmt.Errorf(
					"another scan is in progress: %s (pid=%d created_at=%s host=%s)",
					target, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return ScanLock{}, fmt.Errorf("another scan is in progress: %s", target)
		}
		return ScanLock{}, fmt.Errorf("acquire scan lock for %s: %w", target, err)
	}

	owner := scanLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	ownerPath := filepath.Join(lockDir, scanLockOwnerFile)
	if err := WriteJSON(ownerPath, owner); err != nil {
		_ = os.Remove(lockDir)
		return ScanLock{}, fmt.Errorf("write scan lock owner for %s: %w", target, err)
	}

	return ScanLock{lockDir: lockDir}, nil
}

func (l ScanLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, scanLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release scan lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
