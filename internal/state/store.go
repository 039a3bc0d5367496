// Package state holds the derived, observable chat state. The store is
// mutated only by the connection session and read by the presentation layer
// through consistent snapshots.
package state

import (
	"sync"

	"github.com/SaurabhKumar171/realtime-chat-tui/internal/protocol"
)

// Store holds the live state slices. The message log is append-only; the
// roster, typing set and participant count are wholesale replacements,
// matching the snapshot semantics of the server events.
type Store struct {
	mu          sync.RWMutex
	connected   bool
	messages    []protocol.ChatMessage
	users       []string
	typingUsers []string
	userCount   int
}

// Snapshot is one consistent read of every slice. Slices are copies; a
// render never observes a later mutation.
type Snapshot struct {
	Connected   bool
	Messages    []protocol.ChatMessage
	Users       []string
	TypingUsers []string
	UserCount   int
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// SetConnected updates the connected flag.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Append adds a message to the log. Arrival order is display order.
func (s *Store) Append(msg protocol.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// SetUsers replaces the online roster.
func (s *Store) SetUsers(users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
}

// SetTypingUsers replaces the set of currently typing users.
func (s *Store) SetTypingUsers(users []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingUsers = users
}

// SetUserCount replaces the participant count. The count is kept as the
// server sent it, never reconciled against the roster size.
func (s *Store) SetUserCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userCount = count
}

// Snapshot returns a consistent copy of all slices.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Connected:   s.connected,
		Messages:    make([]protocol.ChatMessage, len(s.messages)),
		Users:       make([]string, len(s.users)),
		TypingUsers: make([]string, len(s.typingUsers)),
		UserCount:   s.userCount,
	}
	copy(snap.Messages, s.messages)
	copy(snap.Users, s.users)
	copy(snap.TypingUsers, s.typingUsers)
	return snap
}
