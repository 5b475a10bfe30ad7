package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View composes the scrollable feed, prompt bar, and status bar.
func (m Model) View() string {
	if !m.ready || m.feed == nil {
		return "Initializing..."
	}
	feed := m.feed.View()
	prompt := m.renderPromptBar()
	status := m.statusBar.View(m.width)
	return lipgloss.JoinVertical(lipgloss.Left, feed, prompt, status)
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return welcomeStyle.Width(max(0, m.width)).Render("Ask a question about satellite imagery. Enter to send | Esc to quit | ctrl+l to clear")
	}
	rendered := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		rendered = append(rendered, RenderMessage(msg, m.width))
	}
	return strings.Join(rendered, "\n")
}

func (m Model) renderPromptBar() string {
	prefix := "> "
	hint := dimStyle.Render(" Enter to ask | Esc to quit")
	if m.running {
		prefix = m.spinner.View() + " "
		hint = dimStyle.Render(" working... Esc to cancel")
	}
	return promptBarStyle.Width(m.width).Render(prefix + m.input.View() + hint)
}
