package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/namestore"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/protocol"
	"github.com/SaurabhKumar171/realtime-chat-tui/internal/state"
)

// chatServer is a minimal in-process chat server endpoint.
type chatServer struct {
	srv     *httptest.Server
	conns   chan *websocket.Conn
	inbound chan []byte
}

func newChatServer(t *testing.T) *chatServer {
	t.Helper()
	cs := &chatServer{
		conns:   make(chan *websocket.Conn, 8),
		inbound: make(chan []byte, 64),
	}
	upgrader := websocket.Upgrader{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cs.conns <- conn
		go func() {
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				cs.inbound <- data
			}
		}()
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *chatServer) url() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http")
}

func (cs *chatServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-cs.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no client connected")
		return nil
	}
}

func (cs *chatServer) recv(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-cs.inbound:
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func (cs *chatServer) expectNoFrame(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case data := <-cs.inbound:
		t.Fatalf("unexpected frame: %s", data)
	case <-time.After(d):
	}
}

func newTestSession(t *testing.T, url string) *Session {
	t.Helper()
	s := NewSession(Options{
		URL:       url,
		UserName:  "alice",
		BaseDelay: 5 * time.Millisecond,
		MaxDelay:  20 * time.Millisecond,
		Store:     state.New(),
	})
	t.Cleanup(s.Disconnect)
	return s
}

func countDials(s *Session) *int32 {
	var dials int32
	orig := s.dial
	s.dial = func(url string) (*websocket.Conn, error) {
		atomic.AddInt32(&dials, 1)
		return orig(url)
	}
	return &dials
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type recordingSink struct{ msgs chan tea.Msg }

func (r *recordingSink) Send(msg tea.Msg) { r.msgs <- msg }

func TestBackoffDelaySequence(t *testing.T) {
	base := 300 * time.Millisecond
	max := 5 * time.Second
	want := []time.Duration{
		300 * time.Millisecond,
		600 * time.Millisecond,
		1200 * time.Millisecond,
		2400 * time.Millisecond,
		4800 * time.Millisecond,
		5 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for attempt, w := range want {
		if got := backoffDelay(base, max, attempt); got != w {
			t.Errorf("backoffDelay(attempt=%d) = %v, want %v", attempt, got, w)
		}
	}
	// Very large attempt counts still cap cleanly.
	if got := backoffDelay(base, max, 500); got != max {
		t.Errorf("backoffDelay(attempt=500) = %v, want %v", got, max)
	}
}

func TestConnectSendsIdentifyAndPersistsName(t *testing.T) {
	cs := newChatServer(t)
	names, err := namestore.Open(t.TempDir() + "/profile.yaml")
	if err != nil {
		t.Fatal(err)
	}

	s := NewSession(Options{
		URL:      cs.url(),
		UserName: "alice",
		Names:    names,
		Store:    state.New(),
	})
	t.Cleanup(s.Disconnect)
	s.Connect()

	frame := cs.recv(t)
	if frame["type"] != "identify" || frame["user_name"] != "alice" {
		t.Errorf("first frame = %v, want identify for alice", frame)
	}

	waitFor(t, "persisted name", func() bool {
		v, ok := names.Get(namestore.KeyUsername)
		return ok && v == "alice"
	})
}

func TestConnectWithoutUserNameIsNoop(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())
	s.SetUserName("")
	dials := countDials(s)

	s.Connect()
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(dials); n != 0 {
		t.Errorf("dials = %d, want 0 without a display name", n)
	}
	if s.State() != StateDisconnected {
		t.Errorf("state = %v, want Disconnected", s.State())
	}
}

func TestInboundEventsApplyInOrder(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())
	s.Connect()
	conn := cs.accept(t)
	cs.recv(t) // identify

	frames := []string{
		`{"type":"message","id":"m1","sender":"bob","text":"first"}`,
		`{"type":"dm","id":"m2","sender":"bob","recipient":"alice","text":"second"}`,
		`{"type":"users","userList":["alice","bob"]}`,
		`{"type":"user_count","count":7}`,
		`{"type":"typing","typing_users":["bob"]}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, "all events applied", func() bool {
		snap := s.Store().Snapshot()
		return len(snap.Messages) == 2 && len(snap.Users) == 2 &&
			snap.UserCount == 7 && len(snap.TypingUsers) == 1
	})

	snap := s.Store().Snapshot()
	if snap.Messages[0].ID != "m1" || snap.Messages[1].ID != "m2" {
		t.Errorf("messages out of arrival order: %+v", snap.Messages)
	}
	if snap.Messages[0].Recipient != "" {
		t.Error("broadcast message must not carry a recipient")
	}
	if snap.Messages[1].Recipient != "alice" {
		t.Errorf("dm recipient = %q, want alice", snap.Messages[1].Recipient)
	}
}

func TestMalformedPayloadsAreDropped(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())
	s.Connect()
	conn := cs.accept(t)
	cs.recv(t) // identify

	s.Store().SetUsers([]string{"alice"})

	frames := []string{
		`{"type":"presence","who":"bob"}`, // unknown discriminant
		`not json at all`,
		`"just a string"`,
		`{"text":"no type"}`,
		`{"type":"message","id":"ok","sender":"bob","text":"still alive"}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatal(err)
		}
	}

	// The one well-formed message arrives; nothing else changed.
	waitFor(t, "good message applied", func() bool {
		return len(s.Store().Snapshot().Messages) == 1
	})
	snap := s.Store().Snapshot()
	if snap.Messages[0].ID != "ok" {
		t.Errorf("message = %+v", snap.Messages[0])
	}
	if len(snap.Users) != 1 {
		t.Errorf("roster changed by malformed payloads: %v", snap.Users)
	}
	if s.State() != StateOpen {
		t.Errorf("connection should stay open, state = %v", s.State())
	}
}

func TestSendMessageGating(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())

	// Not connected: nothing transmits, even valid input.
	if s.SendMessage("hello", protocol.KindMessage, "") {
		t.Error("SendMessage should fail while disconnected")
	}

	s.Connect()
	cs.accept(t)
	cs.recv(t) // identify
	waitFor(t, "open", func() bool { return s.State() == StateOpen })

	// Empty and whitespace-only input never transmits.
	if s.SendMessage("", protocol.KindMessage, "") {
		t.Error("SendMessage(\"\") should report failure")
	}
	if s.SendMessage("   ", protocol.KindMessage, "") {
		t.Error("whitespace-only message should report failure")
	}
	cs.expectNoFrame(t, 50*time.Millisecond)

	// Trimmed body transmits.
	if !s.SendMessage("  hello  ", protocol.KindMessage, "") {
		t.Fatal("SendMessage should succeed while open")
	}
	frame := cs.recv(t)
	if frame["type"] != "message" || frame["message"] != "hello" {
		t.Errorf("frame = %v, want trimmed broadcast", frame)
	}
	if _, ok := frame["sendTo"]; ok {
		t.Error("broadcast frame must not carry sendTo")
	}

	// Direct messages carry the recipient.
	if !s.SendMessage("psst", protocol.KindDM, "bob") {
		t.Fatal("dm send should succeed")
	}
	frame = cs.recv(t)
	if frame["type"] != "dm" || frame["sendTo"] != "bob" {
		t.Errorf("dm frame = %v", frame)
	}
}

func TestSendTyping(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())

	// No transport yet: swallowed, not an error.
	if s.SendTyping(true) {
		t.Error("SendTyping should report false without a transport")
	}

	s.Connect()
	cs.accept(t)
	cs.recv(t) // identify

	if !s.SendTyping(true) {
		t.Fatal("SendTyping(true) should transmit while connected")
	}
	frame := cs.recv(t)
	if frame["type"] != "typing" || frame["username"] != "alice" || frame["action"] != "start" {
		t.Errorf("frame = %v", frame)
	}

	s.SendTyping(false)
	frame = cs.recv(t)
	if frame["action"] != "stop" {
		t.Errorf("action = %v, want stop", frame["action"])
	}
}

func TestReconnectAfterServerDrop(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())
	dials := countDials(s)

	s.Connect()
	conn := cs.accept(t)
	cs.recv(t) // identify
	conn.Close()

	// The session redials on its own after the backoff delay.
	waitFor(t, "redial", func() bool { return atomic.LoadInt32(dials) >= 2 })
	cs.accept(t)
	frame := cs.recv(t)
	if frame["type"] != "identify" {
		t.Errorf("reconnect should re-identify, got %v", frame)
	}
}

func TestManualDisconnectPreventsReconnect(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())
	dials := countDials(s)

	s.Connect()
	cs.accept(t)
	cs.recv(t) // identify
	waitFor(t, "open", func() bool { return s.State() == StateOpen })

	s.Disconnect()
	waitFor(t, "disconnected", func() bool { return s.State() == StateDisconnected })

	// Well past several backoff windows: no new attempt, counter inert.
	time.Sleep(100 * time.Millisecond)
	if n := atomic.LoadInt32(dials); n != 1 {
		t.Errorf("dials = %d after manual disconnect, want 1", n)
	}
	s.mu.Lock()
	attempt := s.attempt
	s.mu.Unlock()
	if attempt != 0 {
		t.Errorf("attempt counter = %d after manual disconnect, want 0", attempt)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())

	// Before any connection.
	s.Disconnect()
	s.Disconnect()

	// An explicit Connect clears the earlier manual close.
	s.Connect()
	cs.accept(t)
	cs.recv(t)
	waitFor(t, "open", func() bool { return s.State() == StateOpen })

	s.Disconnect()
	s.Disconnect()
	waitFor(t, "disconnected", func() bool { return s.State() == StateDisconnected })
}

func TestConnectWhileOpenIsIgnored(t *testing.T) {
	cs := newChatServer(t)
	s := newTestSession(t, cs.url())
	dials := countDials(s)

	s.Connect()
	cs.accept(t)
	cs.recv(t)
	waitFor(t, "open", func() bool { return s.State() == StateOpen })

	s.Connect()
	s.Connect()
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(dials); n != 1 {
		t.Errorf("dials = %d, want 1 (re-entrant Connect must be ignored)", n)
	}
}

func TestLifecycleCallbacksAndNotifier(t *testing.T) {
	cs := newChatServer(t)

	opened := make(chan struct{}, 4)
	closed := make(chan error, 4)
	s := NewSession(Options{
		URL:       cs.url(),
		UserName:  "alice",
		BaseDelay: 5 * time.Millisecond,
		MaxDelay:  20 * time.Millisecond,
		Store:     state.New(),
		Callbacks: Callbacks{
			OnOpen:  func() { opened <- struct{}{} },
			OnClose: func(err error) { closed <- err },
		},
	})
	t.Cleanup(s.Disconnect)

	sink := &recordingSink{msgs: make(chan tea.Msg, 64)}
	s.Attach(sink)

	s.Connect()
	conn := cs.accept(t)
	cs.recv(t) // identify

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen never fired")
	}
	if msg := <-sink.msgs; msg != (ConnectedMsg{}) {
		t.Errorf("first notification = %#v, want ConnectedMsg", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"message","id":"m1","sender":"bob","text":"hi"}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-sink.msgs:
		mm, ok := msg.(MessageMsg)
		if !ok || mm.Message.ID != "m1" {
			t.Errorf("notification = %#v, want MessageMsg m1", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no MessageMsg delivered")
	}

	s.Disconnect()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose never fired")
	}
}
