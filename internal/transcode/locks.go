package transcode

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"jellyshrink/internal/worklist"
)

type LocksOptions struct {
	ListPath string
	BaseDir  string
}

// HeldLock is a listed path whose claim marker exists. Workers skip such
// entries forever, so each one is either a live claim mid-removal or a
// crash leftover that needs clearing.
type HeldLock struct {
	Line       string `json:"line"`
	Path       string `json:"path"`
	MarkerPath string `json:"marker_path"`
	MarkedAt   string `json:"marked_at,omitempty"`
	Age        string `json:"age,omitempty"`
}

type LocksResult struct {
	ListPath string     `json:"list_path"`
	Pending  int        `json:"pending_count"`
	Held     []HeldLock `json:"held"`
}

type ClearLocksResult struct {
	ListPath string     `json:"list_path"`
	Cleared  []HeldLock `json:"cleared"`
}

// ListLocks reports every listed entry whose marker is currently held,
// with the marker's age so an operator can tell a fresh claim from a
// stale one. A missing list reads as an empty queue.
func ListLocks(opts LocksOptions) (LocksResult, error) {
	store, err := locksStore(opts)
	if err != nil {
		return LocksResult{}, err
	}
	entries, err := store.Snapshot()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return LocksResult{}, err
	}

	now := time.Now()
	result := LocksResult{ListPath: store.Path(), Pending: len(entries), Held: []HeldLock{}}
	for _, e := range entries {
		if !e.Locked {
			continue
		}
		held, ok, err := describeHeldLock(e.Job.Line, e.Job.Path, now)
		if err != nil {
			return LocksResult{}, err
		}
		if !ok {
			continue
		}
		result.Held = append(result.Held, held)
	}
	return result, nil
}

// ClearLocks removes the markers ListLocks would report. It never touches
// the list itself: the entries stay queued and become claimable again.
func ClearLocks(opts LocksOptions) (ClearLocksResult, error) {
	listed, err := ListLocks(opts)
	if err != nil {
		return ClearLocksResult{}, err
	}
	result := ClearLocksResult{ListPath: listed.ListPath, Cleared: []HeldLock{}}
	for _, held := range listed.Held {
		if err := worklist.RemoveLock(held.Path); err != nil {
			return ClearLocksResult{}, err
		}
		result.Cleared = append(result.Cleared, held)
	}
	return result, nil
}

func locksStore(opts LocksOptions) (*worklist.Store, error) {
	listPath := strings.TrimSpace(opts.ListPath)
	if listPath == "" {
		return nil, fmt.Errorf("list path is required")
	}
	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	return worklist.NewStore(listPath, baseDir), nil
}

// describeHeldLock stats the marker for its age. ok=false means the
// marker vanished between the snapshot and the stat, which just means
// the path is claimable again.
func describeHeldLock(line, path string, now time.Time) (HeldLock, bool, error) {
	markerPath := worklist.LockPath(path)
	info, err := os.Stat(markerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return HeldLock{}, false, nil
		}
		return HeldLock{}, false, fmt.Errorf("stat item lock %s: %w", markerPath, err)
	}
	age := now.Sub(info.ModTime())
	if age < 0 {
		age = 0
	}
	return HeldLock{
		Line:       line,
		Path:       path,
		MarkerPath: markerPath,
		MarkedAt:   info.ModTime().UTC().Format(time.RFC3339),
		Age:        age.Truncate(time.Second).String(),
	}, true, nil
}
