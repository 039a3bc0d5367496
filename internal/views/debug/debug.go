// Package debug provides a scrollable session event log overlay, useful
// when the connection is flapping.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
)

const maxEntries = 200

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string // "ws", "send", "err"
	Message string
}

// Model holds the event log state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset from the bottom
}

// New creates an empty event log.
func New() Model {
	return Model{}
}

// Add appends an entry, caps the buffer and resets the scroll.
func (m *Model) Add(kind, message string) {
	m.Entries = append(m.Entries, Entry{Time: time.Now(), Kind: kind, Message: message})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// ScrollUp moves the viewport towards older entries.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	if max := len(m.Entries) - 1; m.Offset > max {
		if max < 0 {
			max = 0
		}
		m.Offset = max
	}
}

// ScrollDown moves the viewport towards the newest entry.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

// View renders the event log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visible := height - 6
	if visible < 3 {
		visible = 3
	}

	title := theme.StyleHeader.Render(" SESSION EVENTS ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.Entries)))

	panel := lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	end := len(m.Entries) - m.Offset
	start := end - visible
	if start < 0 {
		start = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		e := m.Entries[i]
		ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(5).Render(e.Kind)
		msg := e.Message
		if len(msg) > innerW-20 && innerW > 23 {
			msg = msg[:innerW-23] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", ts, kind, msg))
	}

	body := strings.Join(lines, "\n")
	indicator := ""
	if m.Offset > 0 {
		indicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}
	return panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, body, indicator, help))
}

func kindColor(kind string) lipgloss.Color {
	switch kind {
	case "ws":
		return theme.ColorAccent
	case "send":
		return theme.ColorHealthy
	case "err":
		return theme.ColorDanger
	default:
		return theme.ColorDimmed
	}
}
