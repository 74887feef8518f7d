// Package chat drives the real-time side of the portal: the hub fans events
// out to live connections and owns every transition of a connection's
// lifecycle after handshake authentication.
package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	chatmodel "github.com/DavidGarciaCosta/portal-productos/internal/model/chat"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/presence"
)

// MessageStore is the durable append-only log behind the chat.
type MessageStore interface {
	Append(msg chatmodel.Message) (chatmodel.Message, error)
	Recent(room string, limit int) ([]chatmodel.Message, error)
}

// StatusStore persists the per-user online flag.
type StatusStore interface {
	SetOnline(id string, online bool) error
}

// SystemSender labels server-authored messages.
const SystemSender = "Sistema"

// Hub relays chat traffic between live sessions and reconciles the presence
// registry with the persisted user status. Persistence failures never take
// down a connection: the registry stays consistent in-process and the
// triggering client gets an explicit error acknowledgement.
type Hub struct {
	registry      *presence.Registry
	messages      MessageStore
	status        StatusStore
	log           *slog.Logger
	historyLimit  int
	maxMessageLen int
}

// NewHub wires the hub to its registry and stores.
func NewHub(registry *presence.Registry, messages MessageStore, status StatusStore, historyLimit, maxMessageLen int, log *slog.Logger) *Hub {
	return &Hub{
		registry:      registry,
		messages:      messages,
		status:        status,
		log:           log,
		historyLimit:  historyLimit,
		maxMessageLen: maxMessageLen,
	}
}

// Registry exposes the presence registry for the sweeper and REST handlers.
func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// Join activates a freshly authenticated session: the registry entry is
// installed (evicting any prior session for the same user), the persisted
// online flag is set, the updated roster goes to everyone and the history
// backfill goes to the new connection only.
func (h *Hub) Join(s *presence.Session) {
	h.registry.Upsert(s)

	if err := h.status.SetOnline(s.UserID, true); err != nil {
		h.log.Error("failed to persist online status", "user", s.Username, "error", err)
	}

	h.broadcastRoster()
	h.sendHistory(s)
	h.systemMessage(fmt.Sprintf("%s se ha conectado", s.Username), presence.SystemColor)

	h.log.Info("user connected", "user", s.Username, "online", h.registry.Len())
}

// Leave finalizes a terminated session. The conn-id guard on Remove makes
// the whole path a no-op when this connection was already superseded or
// swept, so racing teardowns never double-broadcast the departure or
// double-clear the persisted flag.
func (h *Hub) Leave(s *presence.Session) {
	if !h.registry.Remove(s.UserID, s.ConnID) {
		return
	}

	if err := h.status.SetOnline(s.UserID, false); err != nil {
		h.log.Error("failed to clear online status", "user", s.Username, "error", err)
	}

	h.broadcastRoster()
	h.systemMessage(fmt.Sprintf("%s se ha desconectado", s.Username), presence.SystemDepartColor)

	h.log.Info("user disconnected", "user", s.Username, "online", h.registry.Len())
}

// EvictIdle removes a stale entry through the disconnect path, minus the
// personalized departure notice. Implements presence.Evictor.
func (h *Hub) EvictIdle(entry presence.Entry) error {
	if !h.registry.Remove(entry.UserID, entry.ConnID) {
		return nil
	}

	var statusErr error
	if statusErr = h.status.SetOnline(entry.UserID, false); statusErr != nil {
		h.log.Error("failed to clear online status for idle session", "user", entry.Username, "error", statusErr)
	}

	h.broadcastRoster()

	if entry.Conn != nil {
		entry.Conn.Terminate(presence.ReasonIdle, "session closed for inactivity")
	}
	return statusErr
}

// HandleChat validates, persists and broadcasts one chat event from an
// active session. Empty text is dropped silently; over-length text is
// truncated to the cap rather than rejected.
func (h *Hub) HandleChat(s *presence.Session, data ChatData) {
	text := strings.TrimSpace(data.Text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > h.maxMessageLen {
		text = string(runes[:h.maxMessageLen])
	}

	stored, err := h.messages.Append(chatmodel.Message{
		SenderID:   s.UserID,
		SenderName: s.Username,
		Text:       text,
		Room:       data.Room,
	})
	if err != nil {
		h.log.Error("failed to persist message", "user", s.Username, "error", err)
		h.sendTo(s, Outbound{Type: EventChatError, Data: "message could not be delivered"})
		return
	}

	h.broadcast(Outbound{Type: EventChatMessage, Data: MessagePayload{
		ID:         stored.ID,
		SenderName: stored.SenderName,
		SenderID:   stored.SenderID,
		Text:       stored.Text,
		Color:      s.Color,
		Role:       s.Role,
		Kind:       chatmodel.KindUser,
		CreatedAt:  stored.CreatedAt,
	}})
}

// HandleTyping relays a typing or stop-typing indicator to every session
// except the sender. Nothing is persisted.
func (h *Hub) HandleTyping(s *presence.Session, typing bool) {
	event := EventTyping
	if !typing {
		event = EventStopTyping
	}
	h.broadcastExcept(s.ConnID, Outbound{Type: event, Data: TypingPayload{
		User:  s.Username,
		Color: s.Color,
	}})
}

// Roster builds the current roster payload, in join order.
func (h *Hub) Roster() []UserPayload {
	return lo.Map(h.registry.Snapshot(), func(e presence.Entry, _ int) UserPayload {
		return UserPayload{
			ID:     e.UserID,
			Name:   e.Username,
			Role:   e.Role,
			Status: "online",
			Color:  e.Color,
		}
	})
}

// History returns the formatted backfill: the most recent messages for the
// room, oldest first.
func (h *Hub) History(room string) ([]MessagePayload, error) {
	messages, err := h.messages.Recent(room, h.historyLimit)
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m chatmodel.Message, _ int) MessagePayload {
		return formatStored(m)
	}), nil
}

func formatStored(m chatmodel.Message) MessagePayload {
	payload := MessagePayload{
		ID:         m.ID,
		SenderName: m.SenderName,
		SenderID:   m.SenderID,
		Text:       m.Text,
		Color:      presence.ColorFor(m.SenderID),
		Kind:       chatmodel.KindUser,
		CreatedAt:  m.CreatedAt,
	}
	if m.SenderID == "" {
		payload.SenderName = "Usuario Eliminado"
		payload.Color = presence.DeletedSenderColor
	}
	return payload
}

func (h *Hub) sendHistory(s *presence.Session) {
	history, err := h.History(chatmodel.DefaultRoom)
	if err != nil {
		h.log.Error("failed to load message history", "user", s.Username, "error", err)
		h.sendTo(s, Outbound{Type: EventChatError, Data: "message history unavailable"})
		return
	}
	h.sendTo(s, Outbound{Type: EventMessageHistory, Data: history})
}

// systemMessage broadcasts a server-authored notice. System messages are
// not persisted.
func (h *Hub) systemMessage(text, color string) {
	h.broadcast(Outbound{Type: EventChatMessage, Data: MessagePayload{
		SenderName: SystemSender,
		Text:       text,
		Color:      color,
		Kind:       chatmodel.KindSystem,
		CreatedAt:  time.Now().UTC(),
	}})
}

// broadcastRoster pushes the full roster and the online count to everyone.
// The snapshot is taken after the triggering registry mutation completed,
// so receivers always observe read-after-write consistent state.
func (h *Hub) broadcastRoster() {
	roster := h.Roster()
	h.broadcast(Outbound{Type: EventUsersUpdate, Data: roster})
	h.broadcast(Outbound{Type: EventUserCount, Data: len(roster)})
}

func (h *Hub) broadcast(msg Outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal broadcast", "type", msg.Type, "error", err)
		return
	}
	for _, entry := range h.registry.Snapshot() {
		h.deliver(entry, payload, msg.Type)
	}
}

func (h *Hub) broadcastExcept(connID string, msg Outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal broadcast", "type", msg.Type, "error", err)
		return
	}
	for _, entry := range h.registry.Snapshot() {
		if entry.ConnID == connID {
			continue
		}
		h.deliver(entry, payload, msg.Type)
	}
}

func (h *Hub) sendTo(s *presence.Session, msg Outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal payload", "type", msg.Type, "error", err)
		return
	}
	if s.Conn != nil && !s.Conn.Send(payload) {
		h.log.Warn("dropping payload for slow connection", "user", s.Username, "type", msg.Type)
	}
}

func (h *Hub) deliver(entry presence.Entry, payload []byte, eventType string) {
	if entry.Conn == nil {
		return
	}
	if !entry.Conn.Send(payload) {
		h.log.Warn("dropping payload for slow connection", "user", entry.Username, "type", eventType)
	}
}
