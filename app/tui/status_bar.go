package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar renders provider/model metadata plus the last run's turns and duration.
type StatusBar struct {
	model        string
	provider     string
	maxTurns     int
	questions    int
	lastTurns    int
	lastDuration time.Duration
}

func (s StatusBar) View(width int) string {
	left := fmt.Sprintf("%s/%s | turns %d/%d", s.provider, s.model, s.lastTurns, s.maxTurns)
	right := fmt.Sprintf("%d asked | %s", s.questions, formatDuration(s.lastDuration))
	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 0 {
		padding = 0
	}
	return statusStyle.Render(left + strings.Repeat(" ", padding) + right)
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
