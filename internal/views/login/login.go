// Package login renders the username prompt shown before joining.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
)

// Model holds the login prompt state.
type Model struct {
	input textinput.Model
}

// New creates the prompt with the input focused.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Your username"
	ti.CharLimit = 32
	ti.Width = 32
	ti.Focus()
	return Model{input: ti}
}

// Value returns the trimmed entered name.
func (m Model) Value() string {
	return strings.TrimSpace(m.input.Value())
}

// Update forwards input events.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// View renders the centered join card.
func (m Model) View(width, height int) string {
	title := theme.StyleHeader.Render("Realtime Chat")
	sub := theme.StyleDimmed.Render("Enter a username to join")
	tip := theme.StyleDimmed.Render("Tip: /dm <user> <message> sends a private message")

	card := lipgloss.NewStyle().
		Padding(1, 3).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorAccent).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, sub, "", m.input.View(), "", tip))

	if width > 0 && height > 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
	}
	return card
}
