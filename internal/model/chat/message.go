package chat

import "time"

// DefaultRoom is the channel messages land in when the client does not name one.
const DefaultRoom = "general"

// Message kinds as seen by clients.
const (
	KindUser   = "user"
	KindSystem = "system"
)

// Message is a persisted chat message. The sender name is denormalized at
// write time so history stays renderable after account deletion.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Room       string    `json:"room"`
	CreatedAt  time.Time `json:"createdAt"`
}
