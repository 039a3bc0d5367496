// Package users renders the online-roster sidebar.
package users

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
)

const sidebarWidth = 22

// Model holds the roster sidebar state.
type Model struct {
	Users  []string
	Me     string
	Height int
}

// New creates a roster model.
func New() Model {
	return Model{}
}

// View renders the sidebar.
func (m Model) View() string {
	header := theme.StyleHeader.Render(fmt.Sprintf("ONLINE (%d)", len(m.Users)))
	lines := []string{header, ""}

	if len(m.Users) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("no users online"))
	}
	for _, u := range m.Users {
		dot := lipgloss.NewStyle().Foreground(theme.ColorPeer).Render("●")
		name := u
		if u == m.Me {
			dot = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("●")
			name = theme.StyleSelf.Render(u) + theme.StyleDimmed.Render(" (you)")
		}
		lines = append(lines, dot+" "+name)
	}

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)

	style := lipgloss.NewStyle().
		Width(sidebarWidth).
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder)
	if m.Height > 2 {
		style = style.Height(m.Height - 2)
	}
	return style.Render(body)
}
