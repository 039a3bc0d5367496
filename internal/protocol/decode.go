package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Decode errors. The session logs and drops the offending payload; neither
// error ever reaches the user.
var (
	ErrMissingType = errors.New("envelope has no type discriminant")
	ErrUnknownType = errors.New("unrecognized envelope type")
)

// Event is one decoded inbound server event.
type Event interface{ event() }

// MessageEvent appends a chat message to the log.
type MessageEvent struct{ Message ChatMessage }

// RosterEvent wholesale-replaces the online roster.
type RosterEvent struct{ Users []string }

// CountEvent replaces the participant count. The count is independent of
// the roster size; both are preserved as the server sent them.
type CountEvent struct{ Count int }

// TypingEvent wholesale-replaces the set of typing users.
type TypingEvent struct{ Users []string }

func (MessageEvent) event() {}
func (RosterEvent) event()  {}
func (CountEvent) event()   {}
func (TypingEvent) event()  {}

// Decoder turns raw inbound payloads into typed events. The clock and ID
// generator are injectable for tests.
type Decoder struct {
	Now   func() time.Time
	NewID func() string
}

// NewDecoder returns a decoder using the wall clock and random UUIDs.
func NewDecoder() Decoder {
	return Decoder{Now: time.Now, NewID: uuid.NewString}
}

// envelope is the superset of fields the server may send. Unknown fields
// are ignored; ts arrives as either a string or epoch milliseconds.
type envelope struct {
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	Sender      string          `json:"sender"`
	Recipient   string          `json:"recipient"`
	Text        string          `json:"text"`
	Message     string          `json:"message"`
	TS          json.RawMessage `json:"ts"`
	UserList    []string        `json:"userList"`
	Count       *int            `json:"count"`
	TypingUsers []string        `json:"typing_users"`
}

// Decode maps a raw payload to exactly one event. Malformed payloads and
// unrecognized discriminants come back as errors so the caller can log and
// drop them without touching any state.
func (d Decoder) Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	switch env.Type {
	case "message", "group_chat":
		return MessageEvent{Message: ChatMessage{
			ID:        d.orNewID(env.ID),
			Kind:      KindMessage,
			Sender:    orDefault(env.Sender, "Unknown"),
			Body:      env.body(),
			Timestamp: d.timestamp(env.TS),
		}}, nil

	case "dm", "direct_message":
		return MessageEvent{Message: ChatMessage{
			ID:        d.orNewID(env.ID),
			Kind:      KindDM,
			Sender:    orDefault(env.Sender, "Unknown"),
			Recipient: env.Recipient,
			Body:      env.body(),
			Timestamp: d.timestamp(env.TS),
		}}, nil

	case "system":
		return MessageEvent{Message: ChatMessage{
			ID:        d.NewID(),
			Kind:      KindSystem,
			Sender:    "System",
			Body:      orDefault(env.body(), "System message"),
			Timestamp: d.Now().Format(time.RFC3339),
		}}, nil

	case "users":
		return RosterEvent{Users: orEmpty(env.UserList)}, nil

	case "user_count":
		count := 0
		if env.Count != nil {
			count = *env.Count
		}
		return CountEvent{Count: count}, nil

	case "typing":
		// An omitted list clears all typing indicators.
		return TypingEvent{Users: orEmpty(env.TypingUsers)}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

// body returns the message text, preferring the newer "text" field over
// the legacy "message" field.
func (env envelope) body() string {
	if env.Text != "" {
		return env.Text
	}
	return env.Message
}

// timestamp normalizes the wire ts (string, or epoch milliseconds from
// older servers) to a display string, defaulting to the current time.
func (d Decoder) timestamp(raw json.RawMessage) string {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var ms int64
		if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
			return time.UnixMilli(ms).Format(time.RFC3339)
		}
	}
	return d.Now().Format(time.RFC3339)
}

func (d Decoder) orNewID(id string) string {
	if id != "" {
		return id
	}
	return d.NewID()
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
