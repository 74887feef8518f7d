package chat

import (
	"encoding/json"
	"time"
)

// Inbound event types accepted while a connection is active.
const (
	EventChatMessage = "chat_message"
	EventTyping      = "typing"
	EventStopTyping  = "stop_typing"
)

// Outbound event types.
const (
	EventMessageHistory  = "message_history"
	EventUsersUpdate     = "users_update"
	EventUserCount       = "user_count"
	EventForceDisconnect = "force_disconnect"
	EventChatError       = "chat_error"
)

// Inbound is the envelope clients send over the websocket.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope the server sends to clients.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ChatData is the payload of an inbound chat_message event.
type ChatData struct {
	Text string `json:"text"`
	Room string `json:"room,omitempty"`
}

// MessagePayload is a chat message as delivered to clients, both in live
// broadcasts and in the history backfill.
type MessagePayload struct {
	ID         string    `json:"id"`
	SenderName string    `json:"user"`
	SenderID   string    `json:"userId,omitempty"`
	Text       string    `json:"text"`
	Color      string    `json:"color"`
	Role       string    `json:"role,omitempty"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserPayload is one roster entry in a users_update broadcast and in the
// online-users REST response.
type UserPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
	Color  string `json:"color"`
}

// TypingPayload identifies who is typing, with their display color.
type TypingPayload struct {
	User  string `json:"user"`
	Color string `json:"color"`
}
