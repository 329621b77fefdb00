package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"jellyshrink/internal/config"
	"jellyshrink/internal/transcode"
	"jellyshrink/internal/worklist"
)

type reviewPane int

const (
	reviewPaneQueue reviewPane = iota
	reviewPaneFailures
)

type reviewMode int

const (
	reviewModeBrowse reviewMode = iota
	reviewModeDropConfirm
	reviewModeAddEntry
)

type reviewModel struct {
	listPath string
	baseDir  string
	failLog  string

	entries  []worklist.Entry
	failures []string

	pane        reviewPane
	queueCursor int
	failCursor  int
	width       int
	height      int
	mode        reviewMode

	confirmDropLine string
	addInput        textinput.Model
	statusMessage   string
	fatalErr        error
}

type reviewLoadedMsg struct {
	entries  []worklist.Entry
	failures []string
	err      error
}

type reviewActionMsg struct {
	message string
	err     error
}

func runReview(args []string) error {
	fs := flag.NewFlagSet("review", flag.ContinueOnError)
	input := fs.String("input", "", "job list path (empty = settings)")
	base := fs.String("base", "", "media base directory (empty = settings)")
	failLog := fs.String("log", "", "failure log path (empty = settings)")
	configPath := fs.String("config", config.DefaultSettingsPath, "settings file path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("review requires an interactive terminal (TTY)")
	}

	settings, err := config.ReadSettings(strings.TrimSpace(*configPath))
	if err != nil {
		return err
	}
	m := reviewModel{
		listPath: firstNonEmpty(*input, settings.ListPath),
		baseDir:  firstNonEmpty(*base, settings.BaseDir),
		failLog:  firstNonEmpty(*failLog, settings.FailureLogPath),
		mode:     reviewModeBrowse,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("review requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := finalModel.(reviewModel); ok {
		return fm.fatalErr
	}
	return nil
}

func (m reviewModel) Init() tea.Cmd {
	return reviewLoadCmd(m.listPath, m.baseDir, m.failLog)
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.addInput.Width = clampInt(m.width-8, 20, 120)
		return m, nil
	case reviewLoadedMsg:
		if msg.err != nil {
			m.fatalErr = msg.err
			return m, tea.Quit
		}
		m.entries = msg.entries
		m.failures = msg.failures
		m.queueCursor = clampCursor(m.queueCursor, len(m.entries))
		m.failCursor = clampCursor(m.failCursor, len(m.failures))
		return m, nil
	case reviewActionMsg:
		if msg.err != nil {
			m.statusMessage = "error: " + msg.err.Error()
			return m, nil
		}
		m.statusMessage = msg.message
		return m, reviewLoadCmd(m.listPath, m.baseDir, m.failLog)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.mode {
	case reviewModeBrowse:
		return m.updateBrowse(keyMsg)
	case reviewModeDropConfirm:
		return m.updateDropConfirm(keyMsg)
	case reviewModeAddEntry:
		return m.updateAddEntry(keyMsg)
	default:
		return m, nil
	}
}

func (m reviewModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab", "left", "right", "h", "l":
		if m.pane == reviewPaneQueue {
			m.pane = reviewPaneFailures
		} else {
			m.pane = reviewPaneQueue
		}
		return m, nil
	case "up", "k":
		if m.pane == reviewPaneQueue && m.queueCursor > 0 {
			m.queueCursor--
		}
		if m.pane == reviewPaneFailures && m.failCursor > 0 {
			m.failCursor--
		}
		return m, nil
	case "down", "j":
		if m.pane == reviewPaneQueue && m.queueCursor < len(m.entries)-1 {
			m.queueCursor++
		}
		if m.pane == reviewPaneFailures && m.failCursor < len(m.failures)-1 {
			m.failCursor++
		}
		return m, nil
	case "r":
		m.statusMessage = ""
		return m, reviewLoadCmd(m.listPath, m.baseDir, m.failLog)
	case "n":
		input := textinput.New()
		input.Prompt = "> "
		input.Placeholder = "movies/example.mkv"
		input.CharLimit = 1024
		input.Width = clampInt(m.width-8, 20, 120)
		input.Focus()
		m.addInput = input
		m.mode = reviewModeAddEntry
		return m, nil
	case "d":
		if m.pane != reviewPaneQueue {
			return m, nil
		}
		if len(m.entries) == 0 || m.queueCursor >= len(m.entries) {
			m.statusMessage = "select a queue entry to drop"
			return m, nil
		}
		m.mode = reviewModeDropConfirm
		m.confirmDropLine = m.entries[m.queueCursor].Job.Line
		return m, nil
	case "c":
		if m.pane != reviewPaneQueue {
			return m, nil
		}
		if len(m.entries) == 0 || m.queueCursor >= len(m.entries) {
			return m, nil
		}
		selected := m.entries[m.queueCursor]
		if !selected.Locked {
			m.statusMessage = "entry has no held marker"
			return m, nil
		}
		return m, reviewClearMarkerCmd(selected.Job.Path, selected.Job.Line)
	case "enter", "a":
		if m.pane != reviewPaneFailures {
			return m, nil
		}
		if len(m.failures) == 0 || m.failCursor >= len(m.failures) {
			m.statusMessage = "select a failure to requeue"
			return m, nil
		}
		return m, reviewRequeueCmd(m.listPath, m.baseDir, m.failures[m.failCursor])
	}
	return m, nil
}

func (m reviewModel) updateDropConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "n":
		m.mode = reviewModeBrowse
		m.confirmDropLine = ""
		m.statusMessage = "drop cancelled"
		return m, nil
	case "y", "enter":
		line := strings.TrimSpace(m.confirmDropLine)
		m.mode = reviewModeBrowse
		m.confirmDropLine = ""
		if line == "" {
			m.statusMessage = "drop cancelled"
			return m, nil
		}
		return m, reviewDropCmd(m.listPath, m.baseDir, line)
	}
	return m, nil
}

func (m reviewModel) updateAddEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.mode = reviewModeBrowse
		m.statusMessage = "add cancelled"
		return m, nil
	case "enter":
		line := strings.TrimSpace(m.addInput.Value())
		m.mode = reviewModeBrowse
		if line == "" {
			m.statusMessage = "add cancelled"
			return m, nil
		}
		return m, reviewAddCmd(m.listPath, m.baseDir, line)
	}
	var cmd tea.Cmd
	m.addInput, cmd = m.addInput.Update(msg)
	return m, cmd
}

func (m reviewModel) View() string {
	if m.fatalErr != nil {
		return reviewErrorStyle.Render("fatal: " + m.fatalErr.Error())
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	if m.mode == reviewModeDropConfirm {
		return m.viewDropConfirm()
	}
	if m.mode == reviewModeAddEntry {
		return m.viewAddEntry()
	}
	return m.viewBrowse()
}

func (m reviewModel) viewBrowse() string {
	header := reviewTitleStyle.Render("jellyshrink review") + "\n" +
		reviewMutedStyle.Render("tab: switch pane | up/down: move | enter/a: requeue failure | n: queue a path | d: drop entry | c: clear marker | r: refresh | q: quit")

	if m.width < 90 {
		queue := m.renderQueuePanel(m.width)
		failures := m.renderFailuresPanel(m.width)
		body := lipgloss.JoinVertical(lipgloss.Left, queue, failures)
		status := m.renderStatusLine(m.width)
		return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
	}

	leftW := clampInt(m.width/2, 40, 70)
	rightW := m.width - leftW - 1
	queue := m.renderQueuePanel(leftW)
	failures := m.renderFailuresPanel(rightW)
	body := lipgloss.JoinHorizontal(lipgloss.Top, queue, failures)
	status := m.renderStatusLine(m.width)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status)
}

func (m reviewModel) renderQueuePanel(width int) string {
	held := 0
	for _, e := range m.entries {
		if e.Locked {
			held++
		}
	}
	title := fmt.Sprintf("Queue (%d pending, %d held)", len(m.entries), held)
	if m.pane == reviewPaneQueue {
		title = reviewTitleStyle.Render(title)
	}

	maxRows := clampInt(m.height-10, 4, 20)
	start, end := listWindow(len(m.entries), m.queueCursor, maxRows)

	lines := []string{title}
	if len(m.entries) == 0 {
		lines = append(lines, reviewMutedStyle.Render("Nothing queued."))
	}
	if start > 0 {
		lines = append(lines, reviewMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		e := m.entries[i]
		mark := " "
		if e.Locked {
			mark = "!"
		}
		line := fmt.Sprintf("[%s] %s", mark, e.Job.RelPath)
		line = truncateRunes(line, maxInt(width-6, 10))
		if m.pane == reviewPaneQueue && i == m.queueCursor {
			line = reviewSelStyle.Width(maxInt(width-4, 6)).Render(line)
		} else if e.Locked {
			line = reviewHeldStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if end < len(m.entries) {
		lines = append(lines, reviewMutedStyle.Render("..."))
	}

	return reviewPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m reviewModel) renderFailuresPanel(width int) string {
	title := fmt.Sprintf("Failures (%d logged)", len(m.failures))
	if m.pane == reviewPaneFailures {
		title = reviewTitleStyle.Render(title)
	}

	maxRows := clampInt(m.height-10, 4, 20)
	start, end := listWindow(len(m.failures), m.failCursor, maxRows)

	lines := []string{title}
	if len(m.failures) == 0 {
		lines = append(lines, reviewMutedStyle.Render("No logged failures."))
	}
	if start > 0 {
		lines = append(lines, reviewMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		line := truncateRunes(m.failures[i], maxInt(width-6, 10))
		if m.pane == reviewPaneFailures && i == m.failCursor {
			line = reviewSelStyle.Width(maxInt(width-4, 6)).Render(line)
		}
		lines = append(lines, line)
	}
	if end < len(m.failures) {
		lines = append(lines, reviewMutedStyle.Render("..."))
	}

	return reviewPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m reviewModel) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		msg = "Tip: requeued failures go back on the list; the failure log keeps its history."
	}
	style := reviewMutedStyle
	if strings.HasPrefix(strings.ToLower(msg), "error:") {
		style = reviewErrorStyle
	} else if strings.HasPrefix(msg, "requeued") || strings.HasPrefix(msg, "queued") || strings.HasPrefix(msg, "dropped") || strings.HasPrefix(msg, "marker cleared") {
		style = reviewOKStyle
	}
	return style.Width(width).Render(truncateRunes(msg, maxInt(width-2, 10)))
}

func (m reviewModel) viewDropConfirm() string {
	text := fmt.Sprintf(
		"Drop '%s' from the list?\n\nThe file itself is untouched; the entry just\nstops being offered to workers.\n\nPress y or Enter to confirm, n or Esc to cancel.",
		m.confirmDropLine,
	)
	boxW := clampInt(m.width-8, 36, 80)
	boxH := clampInt(m.height-6, 9, 14)
	panel := reviewPanelStyle.Width(boxW).Height(boxH).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func (m reviewModel) viewAddEntry() string {
	text := reviewTitleStyle.Render("Queue a path") + "\n\n" +
		reviewMutedStyle.Render("Relative paths resolve against the media base directory.") + "\n\n" +
		m.addInput.View() + "\n\n" +
		reviewMutedStyle.Render("Enter to queue, Esc to cancel.")
	boxW := clampInt(m.width-8, 36, 100)
	panel := reviewPanelStyle.Width(boxW).Render(text)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func reviewLoadCmd(listPath, baseDir, failLog string) tea.Cmd {
	return func() tea.Msg {
		entries, err := worklist.NewStore(listPath, baseDir).Snapshot()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return reviewLoadedMsg{err: err}
		}
		failures, err := transcode.NewFailureLog(failLog, baseDir).Entries()
		if err != nil {
			return reviewLoadedMsg{err: err}
		}
		return reviewLoadedMsg{entries: entries, failures: failures}
	}
}

func reviewDropCmd(listPath, baseDir, line string) tea.Cmd {
	return func() tea.Msg {
		removed, err := worklist.NewStore(listPath, baseDir).Remove(line)
		if err != nil {
			return reviewActionMsg{err: err}
		}
		if !removed {
			return reviewActionMsg{err: fmt.Errorf("entry already gone: %s", line)}
		}
		return reviewActionMsg{message: "dropped: " + line}
	}
}

func reviewClearMarkerCmd(path, line string) tea.Cmd {
	return func() tea.Msg {
		if err := worklist.RemoveLock(path); err != nil {
			return reviewActionMsg{err: err}
		}
		return reviewActionMsg{message: "marker cleared: " + line}
	}
}

func reviewRequeueCmd(listPath, baseDir, line string) tea.Cmd {
	return func() tea.Msg {
		if err := worklist.NewStore(listPath, baseDir).Append(line); err != nil {
			return reviewActionMsg{err: err}
		}
		return reviewActionMsg{message: "requeued: " + line}
	}
}

func reviewAddCmd(listPath, baseDir, line string) tea.Cmd {
	return func() tea.Msg {
		if err := worklist.NewStore(listPath, baseDir).Append(line); err != nil {
			return reviewActionMsg{err: err}
		}
		return reviewActionMsg{message: "queued: " + line}
	}
}

func clampCursor(cursor, total int) int {
	if total <= 0 {
		return 0
	}
	if cursor < 0 {
		return 0
	}
	if cursor > total-1 {
		return total - 1
	}
	return cursor
}
