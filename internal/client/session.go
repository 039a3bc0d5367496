// Package client manages the WebSocket session with the chat server:
// connection lifecycle, reconnection with exponential backoff, and the
// translation between wire envelopes and local state.
package client

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/namestore"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/protocol"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/state"
)

const (
	defaultBaseDelay = 300 * time.Millisecond
	defaultMaxDelay  = 5 * time.Second
	writeTimeout     = 10 * time.Second
	pongTimeout      = 60 * time.Second
	pingInterval     = 30 * time.Second
)

var errNotConnected = errors.New("not connected")

// ConnState is the connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpen
	StateClosing
)

// Callbacks are lifecycle hooks implemented by the presentation layer.
type Callbacks struct {
	OnOpen  func()
	OnClose func(err error)
}

// Notifier receives session messages; *tea.Program satisfies it.
type Notifier interface {
	Send(msg tea.Msg)
}

// Options configures a Session.
type Options struct {
	URL       string
	UserName  string
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Store     *state.Store
	Names     *namestore.Store
	Callbacks Callbacks
	Now       func() time.Time
}

// Session owns exactly one logical connection to the chat server. All
// inbound events are applied to the state store in arrival order; the UI
// is woken through the attached notifier.
type Session struct {
	url       string
	store     *state.Store
	names     *namestore.Store
	cb        Callbacks
	dec       protocol.Decoder
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration

	mu        sync.Mutex
	writeMu   sync.Mutex // serialises all conn writes (identify, sends, pings)
	conn      *websocket.Conn
	connState ConnState
	gen       int // connection generation; stale handles are inert
	attempt   int
	manual    bool // manual close requested; stops reconnection
	reconnect *time.Timer
	userName  string
	sink      Notifier

	// dial is swappable in tests.
	dial func(url string) (*websocket.Conn, error)
}

// --- Bubble Tea messages ---

// ConnectedMsg is sent when the connection opens.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the connection drops.
type DisconnectedMsg struct{ Err error }

// MessageMsg delivers a chat message appended to the log.
type MessageMsg struct{ Message protocol.ChatMessage }

// RosterMsg delivers a roster replacement.
type RosterMsg struct{ Users []string }

// CountMsg delivers a participant count replacement.
type CountMsg struct{ Count int }

// TypingMsg delivers a typing-set replacement.
type TypingMsg struct{ Users []string }

// NewSession creates a session. It does not connect; call Connect.
func NewSession(opts Options) *Session {
	s := &Session{
		url:       opts.URL,
		userName:  strings.TrimSpace(opts.UserName),
		store:     opts.Store,
		names:     opts.Names,
		cb:        opts.Callbacks,
		dec:       protocol.NewDecoder(),
		now:       time.Now,
		baseDelay: opts.BaseDelay,
		maxDelay:  opts.MaxDelay,
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
	}
	if s.store == nil {
		s.store = state.New()
	}
	if s.baseDelay <= 0 {
		s.baseDelay = defaultBaseDelay
	}
	if s.maxDelay <= 0 {
		s.maxDelay = defaultMaxDelay
	}
	if opts.Now != nil {
		s.now = opts.Now
		s.dec.Now = opts.Now
	}
	return s
}

// Attach sets the notifier that receives session messages.
func (s *Session) Attach(n Notifier) {
	s.mu.Lock()
	s.sink = n
	s.mu.Unlock()
}

// Store returns the state store the session mutates.
func (s *Session) Store() *state.Store {
	return s.store
}

// UserName returns the current display name.
func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userName
}

// SetUserName sets the display name. It only takes effect while
// disconnected; the name is part of the identify handshake.
func (s *Session) SetUserName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connState != StateDisconnected {
		return
	}
	s.userName = strings.TrimSpace(name)
}

// State returns the connection lifecycle state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connState
}

// Connect opens a new transport handle. It is a no-op without a display
// name or while a handle is already connecting or open; callers rely on
// the reconnect loop rather than re-invoking Connect.
func (s *Session) Connect() {
	s.mu.Lock()
	s.manual = false
	s.startLocked()
}

// startLocked begins a connection attempt. Callers hold s.mu, which is
// released here. The manual flag is checked under the same lock so a
// scheduled reconnect cannot race a Disconnect.
func (s *Session) startLocked() {
	if s.userName == "" || s.manual || s.connState == StateConnecting || s.connState == StateOpen {
		s.mu.Unlock()
		return
	}
	s.connState = StateConnecting
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	go s.run(gen)
}

// Disconnect requests a manual close. Idempotent; once requested no
// further reconnection is scheduled, even if a close is already in flight.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.manual = true
	if s.reconnect != nil {
		s.reconnect.Stop()
		s.reconnect = nil
	}
	conn := s.conn
	if conn != nil {
		s.connState = StateClosing
	}
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// SendMessage trims and transmits a message. It returns false without
// transmitting when the trimmed text is empty or the connection is not
// open. A true result means the write was handed to the transport, not
// that the server received it.
func (s *Session) SendMessage(text string, kind protocol.Kind, recipient string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	open := s.connState == StateOpen && s.conn != nil
	s.mu.Unlock()
	if !open {
		return false
	}

	if err := s.writeJSON(protocol.Outgoing(kind, text, recipient, s.now())); err != nil {
		log.Printf("chat: send message: %v", err)
		return false
	}
	return true
}

// SendTyping transmits a typing start/stop signal. The attempt is made
// regardless of connection state and silently swallowed when there is no
// live transport.
func (s *Session) SendTyping(active bool) bool {
	s.mu.Lock()
	conn := s.conn
	userName := s.userName
	s.mu.Unlock()
	if conn == nil {
		return false
	}

	if err := s.writeJSON(protocol.Typing(userName, active)); err != nil {
		log.Printf("chat: send typing: %v", err)
		return false
	}
	return true
}

func (s *Session) run(gen int) {
	conn, err := s.dial(s.url)
	if err != nil {
		log.Printf("chat: dial %s: %v", s.url, err)
		s.handleClose(gen, err)
		return
	}

	s.mu.Lock()
	if gen != s.gen || s.manual {
		// Superseded or manually closed while dialing.
		s.mu.Unlock()
		conn.Close()
		s.handleClose(gen, nil)
		return
	}
	s.conn = conn
	s.connState = StateOpen
	s.attempt = 0
	userName := s.userName
	s.mu.Unlock()

	if err := s.writeJSON(protocol.Identify(userName)); err != nil {
		log.Printf("chat: identify: %v", err)
	} else if s.names != nil {
		if err := s.names.Set(namestore.KeyUsername, userName); err != nil {
			log.Printf("chat: persist display name: %v", err)
		}
	}

	s.store.SetConnected(true)
	if s.cb.OnOpen != nil {
		s.cb.OnOpen()
	}
	s.notify(ConnectedMsg{})

	go s.pingLoop(conn)
	s.readLoop(gen, conn)
}

// readLoop reads until the transport fails, applying decoded events to the
// store strictly in arrival order.
func (s *Session) readLoop(gen int, conn *websocket.Conn) {
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			conn.Close()
			s.handleClose(gen, err)
			return
		}

		ev, err := s.dec.Decode(data)
		if err != nil {
			// Malformed or unrecognized payloads are dropped; the
			// connection and all state stay untouched.
			log.Printf("chat: dropping payload: %v", err)
			continue
		}
		s.apply(ev)
	}
}

func (s *Session) apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.MessageEvent:
		s.store.Append(ev.Message)
		s.notify(MessageMsg{Message: ev.Message})
	case protocol.RosterEvent:
		s.store.SetUsers(ev.Users)
		s.notify(RosterMsg{Users: ev.Users})
	case protocol.CountEvent:
		s.store.SetUserCount(ev.Count)
		s.notify(CountMsg{Count: ev.Count})
	case protocol.TypingEvent:
		s.store.SetTypingUsers(ev.Users)
		s.notify(TypingMsg{Users: ev.Users})
	}
}

// handleClose drives the Disconnected transition and schedules the next
// attempt. Calls from superseded connection handles are ignored.
func (s *Session) handleClose(gen int, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.connState = StateDisconnected
	s.conn = nil
	manual := s.manual
	var delay time.Duration
	if !manual {
		delay = backoffDelay(s.baseDelay, s.maxDelay, s.attempt)
		s.attempt++
	}
	s.mu.Unlock()

	s.store.SetConnected(false)
	if s.cb.OnClose != nil {
		s.cb.OnClose(err)
	}
	s.notify(DisconnectedMsg{Err: err})

	if manual {
		return
	}

	log.Printf("chat: reconnecting in %v", delay)
	s.mu.Lock()
	if s.reconnect != nil {
		s.reconnect.Stop()
	}
	s.reconnect = time.AfterFunc(delay, func() {
		// startLocked re-checks the manual flag at fire time: a
		// Disconnect issued after scheduling leaves this timer inert.
		s.mu.Lock()
		s.startLocked()
	})
	s.mu.Unlock()
}

// pingLoop sends periodic pings on the given connection. It exits when the
// connection is superseded or the write fails.
func (s *Session) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.mu.Lock()
		current := s.conn
		s.mu.Unlock()
		if current != conn {
			return
		}
		s.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := conn.WriteMessage(websocket.PingMessage, nil)
		s.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (s *Session) writeJSON(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(v)
}

func (s *Session) notify(msg tea.Msg) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink.Send(msg)
	}
}

// backoffDelay returns min(max, base*2^attempt). The attempt counter is
// uncapped; the cap bounds the delay only.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt >= 20 {
		return max
	}
	d := base << uint(attempt)
	if d > max {
		return max
	}
	return d
}
