package cli

import "github.com/charmbracelet/lipgloss"

var (
	reviewTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	reviewMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	reviewErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	reviewOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	reviewHeldStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	reviewPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	reviewSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

func listWindow(total, cursor, maxRows int) (int, int) {
	if total <= maxRows {
		return 0, total
	}
	half := maxRows / 2
	start := cursor - half
	if start < 0 {
		start = 0
	}
	end := start + maxRows
	if end > total {
		end = total
		start = end - maxRows
	}
	return start, end
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
