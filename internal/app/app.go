// Package app holds the root Bubble Tea model: the login prompt, the chat
// screen and the wiring between user intents and the connection session.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/client"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/protocol"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/theme"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/views/chatlog"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/views/composer"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/views/debug"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/views/login"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/views/status"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/views/users"
)

// Vertical space taken by the chrome around the message log: header bar,
// composer, typing line and hint line.
const chromeHeight = 9

type phase int

const (
	phaseLogin phase = iota
	phaseChat
)

// typingTickMsg asks the model to re-check the typing debounce deadline.
type typingTickMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	sess *client.Session
	keys KeyMap

	width  int
	height int
	phase  phase

	login     login.Model
	statusBar status.Model
	chat      chatlog.Model
	roster    users.Model
	composer  composer.Model
	events    debug.Model

	showUsers  bool
	showEvents bool

	typing *typingNotifier
}

// New creates the root model. A session that already carries a display
// name (restored from the profile) skips the login prompt.
func New(sess *client.Session, typingDebounce time.Duration) Model {
	m := Model{
		sess:      sess,
		keys:      DefaultKeyMap(),
		login:     login.New(),
		statusBar: status.New(),
		chat:      chatlog.New(),
		roster:    users.New(),
		composer:  composer.New(),
		events:    debug.New(),
		showUsers: true,
		typing:    newTypingNotifier(typingDebounce),
	}
	if name := sess.UserName(); name != "" {
		m.enterChat(name)
	}
	return m
}

// Init starts the connection when the login phase was skipped.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.phase == phaseChat {
		cmds = append(cmds, m.connectCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.ConnectedMsg:
		m.events.Add("ws", "connected")
		m.refresh()
		return m, nil

	case client.DisconnectedMsg:
		if msg.Err != nil {
			m.events.Add("err", fmt.Sprintf("disconnected: %v", msg.Err))
		} else {
			m.events.Add("ws", "disconnected")
		}
		m.refresh()
		return m, nil

	case client.MessageMsg:
		m.events.Add("ws", fmt.Sprintf("%s from %s", msg.Message.Kind, msg.Message.Sender))
		m.refresh()
		return m, nil

	case client.RosterMsg, client.CountMsg, client.TypingMsg:
		m.refresh()
		return m, nil

	case typingTickMsg:
		if m.typing.Expired(time.Now()) {
			m.sess.SendTyping(false)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.sess.Disconnect()
		return m, tea.Quit
	}

	if m.phase == phaseLogin {
		return m.handleLoginKey(msg)
	}

	if m.showEvents {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Events):
			m.showEvents = false
		case key.Matches(msg, m.keys.ScrollUp):
			m.events.ScrollUp(1)
		case key.Matches(msg, m.keys.ScrollDown):
			m.events.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		return m.handleSend()

	case key.Matches(msg, m.keys.ToggleUsers):
		m.showUsers = !m.showUsers
		m.layout()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Events):
		m.showEvents = true
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		return m, m.chat.Update(msg)
	}

	cmd, changed := m.composer.Update(msg)
	if !changed {
		return m, cmd
	}
	if m.typing.Touch(time.Now()) {
		m.sess.SendTyping(true)
	}
	tick := tea.Tick(m.typing.delay, func(time.Time) tea.Msg { return typingTickMsg{} })
	return m, tea.Batch(cmd, tick)
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Send) {
		name := m.login.Value()
		if name == "" {
			return m, nil
		}
		m.sess.SetUserName(name)
		m.enterChat(name)
		m.layout()
		return m, m.connectCmd()
	}

	cmd := m.login.Update(msg)
	return m, cmd
}

func (m Model) handleSend() (tea.Model, tea.Cmd) {
	body, kind, recipient := parseInput(m.composer.Value())
	if !m.sess.SendMessage(body, kind, recipient) {
		return m, nil
	}

	if recipient != "" {
		m.events.Add("send", fmt.Sprintf("dm to %s", recipient))
	} else {
		m.events.Add("send", "message")
	}
	m.composer.Reset()
	if m.typing.Stop() {
		m.sess.SendTyping(false)
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.phase == phaseLogin {
		return m.login.View(m.width, m.height)
	}

	if m.showEvents {
		return m.events.View(m.width, m.height)
	}

	main := m.chat.View()
	if m.showUsers {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.roster.View(), main)
	}

	hint := theme.StyleDimmed.Render("  enter:send  ctrl+u:users  ctrl+d:events  ctrl+c:quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		main,
		m.composer.View(),
		hint,
	)
}

// enterChat switches to the chat phase for the given display name.
func (m *Model) enterChat(name string) {
	m.phase = phaseChat
	m.statusBar.UserName = name
	m.chat.Me = name
	m.roster.Me = name
}

// layout recomputes sub-view sizes from the window size.
func (m *Model) layout() {
	m.statusBar.Width = m.width
	m.composer.SetWidth(m.width)

	chatWidth := m.width
	if m.showUsers {
		chatWidth -= 24
	}
	chatHeight := m.height - chromeHeight
	m.chat.SetSize(chatWidth, chatHeight)
	m.roster.Height = chatHeight
}

// refresh re-reads one consistent snapshot of the session state into the
// sub-views.
func (m *Model) refresh() {
	snap := m.sess.Store().Snapshot()
	m.statusBar.Connected = snap.Connected
	m.statusBar.UserCount = snap.UserCount
	m.roster.Users = snap.Users
	m.chat.SetMessages(snap.Messages, snap.TypingUsers)
}

func (m Model) connectCmd() tea.Cmd {
	return func() tea.Msg {
		m.sess.Connect()
		return nil
	}
}

// parseInput splits composer text into a send intent. "/dm <user> <msg>"
// becomes a direct message; an incomplete /dm yields an empty body, which
// the session rejects, leaving the composer untouched.
func parseInput(text string) (body string, kind protocol.Kind, recipient string) {
	trimmed := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(trimmed, "/dm "); ok {
		parts := strings.SplitN(strings.TrimSpace(rest), " ", 2)
		if len(parts) == 2 {
			return strings.TrimSpace(parts[1]), protocol.KindDM, parts[0]
		}
		return "", protocol.KindDM, strings.TrimSpace(parts[0])
	}
	return trimmed, protocol.KindMessage, ""
}
