// Package chatlog renders the scrolling message log and the typing
// indicator line beneath it.
package chatlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/protocol"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
)

// Model holds the message log state.
type Model struct {
	Me string

	viewport viewport.Model
	typing   string
	ready    bool
}

// New creates an empty chat log.
func New() Model {
	return Model{}
}

// SetSize resizes the log viewport.
func (m *Model) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
}

// SetMessages re-renders the log content and pins the view to the bottom,
// mirroring the original scroll-on-new-message behavior.
func (m *Model) SetMessages(messages []protocol.ChatMessage, typingUsers []string) {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, renderMessage(msg, m.Me, width))
	}
	m.typing = typingLine(typingUsers)

	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// Update forwards scroll keys to the viewport.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

// View renders the log plus the typing indicator line.
func (m Model) View() string {
	if !m.ready {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.typing)
}

// renderMessage formats one log line. System messages are set apart; DMs
// carry a badge with the recipient.
func renderMessage(msg protocol.ChatMessage, me string, width int) string {
	clock := theme.StyleDimmed.Render("[" + formatClock(msg.Timestamp) + "]")

	if msg.Kind == protocol.KindSystem {
		return clock + " " + theme.StyleSystem.Render("— "+msg.Body+" —")
	}

	sender := lipgloss.NewStyle().
		Bold(msg.Sender == me).
		Foreground(theme.SenderColor(msg.Sender, me)).
		Render(msg.Sender)

	line := clock + " " + sender
	if msg.Kind == protocol.KindDM {
		badge := "DM"
		if msg.Recipient != "" {
			badge = "DM → " + msg.Recipient
		}
		line += " " + theme.StyleDMBadge.Render("["+badge+"]")
	}
	line += ": " + msg.Body

	return lipgloss.NewStyle().Width(width).Render(line)
}

// formatClock shows a wall-clock time for RFC3339 timestamps and falls
// back to the raw string for anything else the server sent.
func formatClock(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Local().Format("15:04")
	}
	return ts
}

// typingLine formats the indicator under the log; empty when nobody types.
func typingLine(users []string) string {
	switch len(users) {
	case 0:
		return ""
	case 1:
		return theme.StyleTyping.Render(fmt.Sprintf("%s is typing...", users[0]))
	default:
		return theme.StyleTyping.Render(fmt.Sprintf("%s are typing...", strings.Join(users, ", ")))
	}
}
