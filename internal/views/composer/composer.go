// Package composer renders the message input box.
package composer

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
)

// Model wraps the text input at the bottom of the chat screen.
type Model struct {
	input textinput.Model
}

// New creates the composer with the input focused.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message or /dm <user> <msg>..."
	ti.CharLimit = 512
	ti.Focus()
	return Model{input: ti}
}

// Value returns the raw input text.
func (m Model) Value() string {
	return m.input.Value()
}

// Reset clears the input after a successful send.
func (m *Model) Reset() {
	m.input.Reset()
}

// SetWidth resizes the input to the available width.
func (m *Model) SetWidth(width int) {
	if width > 4 {
		m.input.Width = width - 4
	}
}

// Update forwards input events and reports whether the text changed, which
// drives the typing notifier.
func (m *Model) Update(msg tea.Msg) (tea.Cmd, bool) {
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd, m.input.Value() != before
}

// View renders the input box.
func (m Model) View() string {
	return theme.StyleBorder.Render(m.input.View())
}
