// Package protocol defines the JSON envelope wire format spoken with the
// chat server and the typed events decoded from it. Types mirror the server
// wire protocol without importing server packages.
package protocol

import "time"

// Kind identifies the kind of chat message. The values double as the wire
// discriminant for outbound message envelopes.
type Kind string

const (
	KindMessage Kind = "message"
	KindDM      Kind = "dm"
	KindSystem  Kind = "system"
)

// Typing signal actions.
const (
	TypingStart = "start"
	TypingStop  = "stop"
)

// ChatMessage is one unit of chat content. Instances are created on decode
// and never mutated afterwards.
type ChatMessage struct {
	ID        string
	Kind      Kind
	Sender    string
	Recipient string // set only for KindDM
	Body      string
	Timestamp string
}

// IdentifyEnvelope announces the display name, sent once right after the
// connection opens.
type IdentifyEnvelope struct {
	Type     string `json:"type"`
	UserName string `json:"user_name"`
}

// MessageEnvelope carries an outbound broadcast or direct message.
type MessageEnvelope struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	TimeStamp string `json:"timeStamp"`
	SendTo    string `json:"sendTo,omitempty"`
}

// TypingEnvelope signals that the user started or stopped typing.
type TypingEnvelope struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Action   string `json:"action"`
}

// Identify builds the handshake envelope.
func Identify(userName string) IdentifyEnvelope {
	return IdentifyEnvelope{Type: "identify", UserName: userName}
}

// Outgoing builds a message envelope. The body must already be trimmed and
// non-empty; callers gate on that before encoding. sendTo is included only
// for direct messages.
func Outgoing(kind Kind, body, sendTo string, ts time.Time) MessageEnvelope {
	env := MessageEnvelope{
		Type:      string(kind),
		Message:   body,
		TimeStamp: ts.Format(time.RFC3339),
	}
	if kind == KindDM {
		env.SendTo = sendTo
	}
	return env
}

// Typing builds a typing signal envelope.
func Typing(username string, active bool) TypingEnvelope {
	action := TypingStop
	if active {
		action = TypingStart
	}
	return TypingEnvelope{Type: "typing", Username: username, Action: action}
}
