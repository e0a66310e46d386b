package chat

import (
	"encoding/json"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
)

// MessageType names a WebSocket frame.
type MessageType string

const (
	// Inbound and outbound.
	TypeJoin    MessageType = "join"
	TypeLeave   MessageType = "leave"
	TypeChat    MessageType = "chat"
	TypeHistory MessageType = "history"
	TypePeer    MessageType = "peer"
	TypeToken   MessageType = "token"

	// Outbound only.
	TypeInit       MessageType = "init"
	TypeUserJoined MessageType = "user_joined"
	TypeUserLeft   MessageType = "user_left"
	TypeError      MessageType = "error"
)

// Frame is an inbound message from a client.
type Frame struct {
	Type    MessageType     `json:"type"`
	Room    string          `json:"room,omitempty"`
	Message string          `json:"message,omitempty"`
	Since   int64           `json:"since,omitempty"`
	Target  string          `json:"target,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload describes a failed request.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RoomState is the view of a room handed to a joining client.
type RoomState struct {
	ID       string                  `json:"id"`
	Users    map[string]user.Profile `json:"users"`
	Messages []store.Message         `json:"messages"`
}

// Envelope is an outbound message to a client. Only the fields relevant to Type are set.
type Envelope struct {
	Type MessageType `json:"type"`
	Room string      `json:"room,omitempty"`

	// User is the subject of the event: the joining or leaving member, or the peer sender.
	User    string        `json:"user,omitempty"`
	Profile *user.Profile `json:"profile,omitempty"`

	State    *RoomState      `json:"state,omitempty"`
	Rooms    []RoomState     `json:"rooms,omitempty"`
	Message  *store.Message  `json:"message,omitempty"`
	Messages []store.Message `json:"messages,omitempty"`

	Text  string          `json:"text,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Token string          `json:"token,omitempty"`

	Error *ErrorPayload `json:"error,omitempty"`
}

// Grant is the payload stored behind a connect token.
type Grant struct {
	User user.User
}
