// Package relay defines the wire envelopes exchanged between clients and the
// relay, along with helpers to decode inbound frames and encode outbound ones.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope type discriminators as they appear in the "type" field.
const (
	TypeJoin       = "join"
	TypeMessage    = "message"
	TypeWelcome    = "welcome"
	TypeJoined     = "joined"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeError      = "error"
)

// notInRoomMessage is the error text returned when a chat message arrives
// from a connection that has not joined a room.
const notInRoomMessage = "You are not in a room."

// ErrMalformedEnvelope is returned by DecodeInbound when a frame is not a
// JSON object with the expected field types.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Inbound is a decoded client frame. Only the fields relevant to Type are
// meaningful.
type Inbound struct {
	Type        string `json:"type"`
	Room        string `json:"room"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
}

// DecodeInbound parses a raw text frame into an Inbound envelope.
func DecodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return in, nil
}

// Envelope is an outbound message. Implementations are immutable values.
type Envelope interface {
	EnvelopeType() string
}

// Welcome is sent to a connection right after it is registered.
type Welcome struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Joined acknowledges a join to the joining connection only.
type Joined struct {
	Type        string `json:"type"`
	Room        string `json:"room"`
	DisplayName string `json:"displayName"`
}

// UserJoined announces a new member to a room.
type UserJoined struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// UserLeft announces a departure to the remaining members of a room.
type UserLeft struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// ChatMessage carries a chat line together with its sender's identity.
type ChatMessage struct {
	Type        string `json:"type"`
	UserID      string `json:"userId"`
	Text        string `json:"text"`
	DisplayName string `json:"displayName"`
}

// Error is a user-visible error returned to a single connection.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (Welcome) EnvelopeType() string     { return TypeWelcome }
func (Joined) EnvelopeType() string      { return TypeJoined }
func (UserJoined) EnvelopeType() string  { return TypeUserJoined }
func (UserLeft) EnvelopeType() string    { return TypeUserLeft }
func (ChatMessage) EnvelopeType() string { return TypeMessage }
func (Error) EnvelopeType() string       { return TypeError }

// NewWelcome builds a welcome envelope.
func NewWelcome(userID, displayName string) Welcome {
	return Welcome{Type: TypeWelcome, UserID: userID, DisplayName: displayName}
}

// NewJoined builds a join acknowledgment.
func NewJoined(room, displayName string) Joined {
	return Joined{Type: TypeJoined, Room: room, DisplayName: displayName}
}

// NewUserJoined builds a member arrival announcement.
func NewUserJoined(userID, displayName string) UserJoined {
	return UserJoined{Type: TypeUserJoined, UserID: userID, DisplayName: displayName}
}

// NewUserLeft builds a member departure announcement.
func NewUserLeft(userID string) UserLeft {
	return UserLeft{Type: TypeUserLeft, UserID: userID}
}

// NewChatMessage builds an outbound chat envelope.
func NewChatMessage(userID, text, displayName string) ChatMessage {
	return ChatMessage{Type: TypeMessage, UserID: userID, Text: text, DisplayName: displayName}
}

// NewError builds an error envelope.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// Encode serializes an outbound envelope to its JSON wire form.
func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", env.EnvelopeType(), err)
	}
	return data, nil
}
