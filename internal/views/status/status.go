// Package status renders the chat header bar: connection state, own
// display name and the live participant count.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
)

// Model holds the header bar state.
type Model struct {
	Connected bool
	UserName  string
	UserCount int
	Width     int
}

// New creates a header bar model.
func New() Model {
	return Model{}
}

// View renders the header bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Reconnecting...")
	}

	title := theme.StyleHeader.Render("Realtime Chat")
	me := theme.StyleSelf.Render(m.UserName)
	count := fmt.Sprintf("%d online", m.UserCount)

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := title + sep + connStr + sep + me + sep + count

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
