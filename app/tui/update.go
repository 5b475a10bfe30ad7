package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		feedHeight := max(1, msg.Height-3)
		if m.feed == nil {
			vp := viewport.New(msg.Width, feedHeight)
			m.feed = &vp
		} else {
			m.feed.Width = msg.Width
			m.feed.Height = feedHeight
		}
		m.input.Width = max(10, msg.Width-6)
		m.ready = true
		m.refreshFeed()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.running = false
		m.cancel = nil
		m.messages = append(m.messages, Message{
			ID:        msg.id,
			Timestamp: time.Now(),
			Role:      RoleAgent,
			Outcome:   msg.outcome,
			Err:       msg.err,
			Duration:  msg.took,
		})
		m.statusBar.lastDuration = msg.took
		m.statusBar.questions++
		if msg.outcome != nil {
			m.statusBar.lastTurns = msg.outcome.Turns
		}
		m.refreshFeed()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case tea.KeyEsc:
		if m.running && m.cancel != nil {
			m.cancel()
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyCtrlL:
		m.messages = nil
		m.refreshFeed()
		return m, nil
	case tea.KeyEnter:
		question := strings.TrimSpace(m.input.Value())
		if question == "" || m.running {
			return m, nil
		}
		m.input.Reset()
		next, cmd := m.ask(question)
		next.refreshFeed()
		return next, cmd
	}
	if m.feed != nil && (msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown) {
		vp, cmd := m.feed.Update(msg)
		m.feed = &vp
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refreshFeed() {
	if m.feed == nil {
		return
	}
	m.feed.SetContent(m.renderMessages())
	m.feed.GotoBottom()
}
