package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"jellyshrink/internal/model"
	"jellyshrink/internal/worklist"
)

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func reviewFixtureModel() reviewModel {
	return reviewModel{
		mode: reviewModeBrowse,
		pane: reviewPaneQueue,
		entries: []worklist.Entry{
			{Job: model.Job{Line: "movies/a.mkv", RelPath: "movies/a.mkv", Path: "/m/movies/a.mkv"}},
			{Job: model.Job{Line: "movies/b.mkv", RelPath: "movies/b.mkv", Path: "/m/movies/b.mkv"}, Locked: true},
		},
		failures: []string{"movies/broken.mkv"},
	}
}

func TestReviewBrowseCursorAndPaneKeys(t *testing.T) {
	m := reviewFixtureModel()

	next, _ := m.updateBrowse(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(reviewModel)
	if m.queueCursor != 1 {
		t.Fatalf("queueCursor = %d, want 1", m.queueCursor)
	}
	next, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(reviewModel)
	if m.queueCursor != 1 {
		t.Fatalf("cursor moved past last entry: %d", m.queueCursor)
	}

	next, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(reviewModel)
	if m.pane != reviewPaneFailures {
		t.Fatalf("pane = %d, want failures", m.pane)
	}
	next, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(reviewModel)
	if m.pane != reviewPaneQueue {
		t.Fatalf("pane = %d, want queue", m.pane)
	}

	next, _ = m.updateBrowse(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(reviewModel)
	if m.queueCursor != 0 {
		t.Fatalf("queueCursor = %d, want 0", m.queueCursor)
	}
}

func TestReviewDropKeyOpensConfirm(t *testing.T) {
	m := reviewFixtureModel()

	next, _ := m.updateBrowse(keyRune('d'))
	m = next.(reviewModel)
	if m.mode != reviewModeDropConfirm {
		t.Fatalf("mode = %d, want drop confirm", m.mode)
	}
	if m.confirmDropLine != "movies/a.mkv" {
		t.Fatalf("confirmDropLine = %q", m.confirmDropLine)
	}

	next, _ = m.updateDropConfirm(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(reviewModel)
	if m.mode != reviewModeBrowse {
		t.Fatalf("esc did not return to browse: mode = %d", m.mode)
	}
	if m.statusMessage != "drop cancelled" {
		t.Fatalf("statusMessage = %q", m.statusMessage)
	}
}

func TestReviewDropConfirmRemovesEntry(t *testing.T) {
	tmp := t.TempDir()
	listPath := filepath.Join(tmp, "list.txt")
	if err := os.WriteFile(listPath, []byte("movies/a.mkv\nmovies/b.mkv\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := reviewFixtureModel()
	m.listPath = listPath
	m.baseDir = tmp
	m.mode = reviewModeDropConfirm
	m.confirmDropLine = "movies/a.mkv"

	next, cmd := m.updateDropConfirm(keyRune('y'))
	m = next.(reviewModel)
	if m.mode != reviewModeBrowse {
		t.Fatalf("mode = %d, want browse", m.mode)
	}
	if cmd == nil {
		t.Fatal("confirm returned no command")
	}
	msg, ok := cmd().(reviewActionMsg)
	if !ok {
		t.Fatalf("unexpected msg type %T", cmd())
	}
	if msg.err != nil {
		t.Fatalf("drop failed: %v", msg.err)
	}

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "movies/b.mkv\n" {
		t.Fatalf("list after drop = %q", data)
	}
}

func TestReviewRequeueAppendsToList(t *testing.T) {
	tmp := t.TempDir()
	listPath := filepath.Join(tmp, "list.txt")

	m := reviewFixtureModel()
	m.listPath = listPath
	m.baseDir = tmp
	m.pane = reviewPaneFailures
	m.entries = nil

	_, cmd := m.updateBrowse(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("requeue returned no command")
	}
	msg, ok := cmd().(reviewActionMsg)
	if !ok || msg.err != nil {
		t.Fatalf("requeue msg = %+v", msg)
	}
	if !strings.HasPrefix(msg.message, "requeued:") {
		t.Fatalf("message = %q", msg.message)
	}

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "movies/broken.mkv\n" {
		t.Fatalf("list after requeue = %q", data)
	}
}

func TestReviewClearMarkerKey(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "b.mkv")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, held, err := worklist.AcquireItemLock(target); err != nil || !held {
		t.Fatalf("acquire marker: held=%v err=%v", held, err)
	}

	m := reviewFixtureModel()
	m.entries = []worklist.Entry{
		{Job: model.Job{Line: "b.mkv", RelPath: "b.mkv", Path: target}, Locked: true},
	}

	_, cmd := m.updateBrowse(keyRune('c'))
	if cmd == nil {
		t.Fatal("clear returned no command")
	}
	msg, ok := cmd().(reviewActionMsg)
	if !ok || msg.err != nil {
		t.Fatalf("clear msg = %+v", msg)
	}
	if worklist.IsLocked(target) {
		t.Fatal("marker still present after clear")
	}
}

func TestReviewAddEntryModeQueuesTypedPath(t *testing.T) {
	tmp := t.TempDir()
	listPath := filepath.Join(tmp, "list.txt")

	m := reviewFixtureModel()
	m.listPath = listPath
	m.baseDir = tmp

	next, _ := m.updateBrowse(keyRune('n'))
	m = next.(reviewModel)
	if m.mode != reviewModeAddEntry {
		t.Fatalf("mode = %d, want add entry", m.mode)
	}

	for _, r := range "extra.mkv" {
		next, _ = m.updateAddEntry(keyRune(r))
		m = next.(reviewModel)
	}
	next, cmd := m.updateAddEntry(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(reviewModel)
	if m.mode != reviewModeBrowse {
		t.Fatalf("mode = %d, want browse", m.mode)
	}
	if cmd == nil {
		t.Fatal("enter returned no command")
	}
	msg, ok := cmd().(reviewActionMsg)
	if !ok || msg.err != nil {
		t.Fatalf("add msg = %+v", msg)
	}

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "extra.mkv\n" {
		t.Fatalf("list after add = %q", data)
	}
}

func TestReviewAddEntryEscCancels(t *testing.T) {
	m := reviewFixtureModel()
	next, _ := m.updateBrowse(keyRune('n'))
	m = next.(reviewModel)

	next, cmd := m.updateAddEntry(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(reviewModel)
	if m.mode != reviewModeBrowse {
		t.Fatalf("mode = %d, want browse", m.mode)
	}
	if cmd != nil {
		t.Fatal("esc should not emit a command")
	}
	if m.statusMessage != "add cancelled" {
		t.Fatalf("statusMessage = %q", m.statusMessage)
	}
}

func TestReviewClearMarkerRequiresHeldEntry(t *testing.T) {
	m := reviewFixtureModel()
	// Cursor on the first entry, which holds no marker.
	next, cmd := m.updateBrowse(keyRune('c'))
	m = next.(reviewModel)
	if cmd != nil {
		t.Fatal("clear on unmarked entry should be a no-op")
	}
	if m.statusMessage != "entry has no held marker" {
		t.Fatalf("statusMessage = %q", m.statusMessage)
	}
}

func TestReviewLoadedMsgClampsCursors(t *testing.T) {
	m := reviewFixtureModel()
	m.queueCursor = 5
	m.failCursor = 3

	next, _ := m.Update(reviewLoadedMsg{
		entries:  m.entries[:1],
		failures: nil,
	})
	m = next.(reviewModel)
	if m.queueCursor != 0 {
		t.Fatalf("queueCursor = %d, want 0", m.queueCursor)
	}
	if m.failCursor != 0 {
		t.Fatalf("failCursor = %d, want 0", m.failCursor)
	}
}

func TestReviewActionMsgUpdatesStatusLine(t *testing.T) {
	m := reviewFixtureModel()

	next, cmd := m.Update(reviewActionMsg{message: "dropped: movies/a.mkv"})
	m = next.(reviewModel)
	if m.statusMessage != "dropped: movies/a.mkv" {
		t.Fatalf("statusMessage = %q", m.statusMessage)
	}
	if cmd == nil {
		t.Fatal("successful action should trigger a reload")
	}

	next, cmd = m.Update(reviewActionMsg{err: os.ErrPermission})
	m = next.(reviewModel)
	if !strings.HasPrefix(m.statusMessage, "error:") {
		t.Fatalf("statusMessage = %q", m.statusMessage)
	}
	if cmd != nil {
		t.Fatal("failed action should not reload")
	}
}

func TestReviewLoadCmdToleratesMissingFiles(t *testing.T) {
	tmp := t.TempDir()
	msg, ok := reviewLoadCmd(
		filepath.Join(tmp, "absent-list.txt"),
		tmp,
		filepath.Join(tmp, "absent-failures.log"),
	)().(reviewLoadedMsg)
	if !ok {
		t.Fatal("unexpected msg type")
	}
	if msg.err != nil {
		t.Fatalf("missing files should load as empty: %v", msg.err)
	}
	if len(msg.entries) != 0 || len(msg.failures) != 0 {
		t.Fatalf("entries=%d failures=%d, want empty", len(msg.entries), len(msg.failures))
	}
}
