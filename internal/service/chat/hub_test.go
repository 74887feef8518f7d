package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	chatmodel "github.com/DavidGarciaCosta/portal-productos/internal/model/chat"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/presence"
)

type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	terminated []presence.CloseReason
}

func (c *fakeConn) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, append([]byte(nil), payload...))
	return true
}

func (c *fakeConn) Terminate(reason presence.CloseReason, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminated = append(c.terminated, reason)
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// events returns the decoded frames of one event type, in delivery order.
func (c *fakeConn) events(eventType string) []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []frame
	for _, raw := range c.frames {
		var f frame
		if json.Unmarshal(raw, &f) == nil && f.Type == eventType {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) lastRoster(t *testing.T) []UserPayload {
	t.Helper()
	updates := c.events(EventUsersUpdate)
	require.NotEmpty(t, updates)
	var roster []UserPayload
	require.NoError(t, json.Unmarshal(updates[len(updates)-1].Data, &roster))
	return roster
}

func rosterNames(roster []UserPayload) []string {
	names := make([]string, len(roster))
	for i, u := range roster {
		names[i] = u.Name
	}
	return names
}

type memMessages struct {
	mu        sync.Mutex
	stored    []chatmodel.Message
	appendErr error
	seq       int
}

func (m *memMessages) Append(msg chatmodel.Message) (chatmodel.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return chatmodel.Message{}, m.appendErr
	}
	m.seq++
	msg.ID = fmt.Sprintf("msg-%d", m.seq)
	if msg.Room == "" {
		msg.Room = chatmodel.DefaultRoom
	}
	msg.CreatedAt = time.Now().UTC()
	m.stored = append(m.stored, msg)
	return msg, nil
}

func (m *memMessages) Recent(room string, limit int) ([]chatmodel.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []chatmodel.Message
	for _, msg := range m.stored {
		if msg.Room == room {
			out = append(out, msg)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type memStatus struct {
	mu     sync.Mutex
	online map[string]bool
	err    error
}

func newMemStatus() *memStatus {
	return &memStatus{online: make(map[string]bool)}
}

func (m *memStatus) SetOnline(id string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.online[id] = online
	return nil
}

func (m *memStatus) isOnline(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online[id]
}

func newTestHub(messages MessageStore, status StatusStore) *Hub {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHub(presence.NewRegistry(), messages, status, 100, 500, log)
}

func join(hub *Hub, userID, username string) (*presence.Session, *fakeConn) {
	conn := &fakeConn{}
	s := presence.NewSession("conn-"+userID+"-"+fmt.Sprint(time.Now().UnixNano()), userID, username, "user", conn)
	hub.Join(s)
	return s, conn
}

func TestJoinBroadcastsRosterAndBackfillsHistory(t *testing.T) {
	req := require.New(t)
	messages := &memMessages{}
	status := newMemStatus()
	hub := newTestHub(messages, status)

	_, aliceConn := join(hub, "u1", "alice")
	req.Equal([]string{"alice"}, rosterNames(aliceConn.lastRoster(t)))
	req.Len(aliceConn.events(EventMessageHistory), 1)
	req.True(status.isOnline("u1"))

	_, bobConn := join(hub, "u2", "bob")
	req.ElementsMatch([]string{"alice", "bob"}, rosterNames(aliceConn.lastRoster(t)))
	req.ElementsMatch([]string{"alice", "bob"}, rosterNames(bobConn.lastRoster(t)))

	// The join notice reaches everyone as a system message.
	joins := aliceConn.events(EventChatMessage)
	req.NotEmpty(joins)
	var notice MessagePayload
	req.NoError(json.Unmarshal(joins[len(joins)-1].Data, &notice))
	req.Equal(chatmodel.KindSystem, notice.Kind)
	req.Contains(notice.Text, "bob")
}

func TestLeaveBroadcastsDepartureAndClearsStatus(t *testing.T) {
	req := require.New(t)
	status := newMemStatus()
	hub := newTestHub(&memMessages{}, status)

	alice, _ := join(hub, "u1", "alice")
	_, bobConn := join(hub, "u2", "bob")

	hub.Leave(alice)

	req.Equal([]string{"bob"}, rosterNames(bobConn.lastRoster(t)))
	req.False(status.isOnline("u1"))

	msgs := bobConn.events(EventChatMessage)
	var last MessagePayload
	req.NoError(json.Unmarshal(msgs[len(msgs)-1].Data, &last))
	req.Equal(chatmodel.KindSystem, last.Kind)
	req.Contains(last.Text, "alice")

	// Double-termination must not double-broadcast or re-clear state.
	before := len(bobConn.events(EventChatMessage))
	hub.Leave(alice)
	req.Equal(before, len(bobConn.events(EventChatMessage)))
}

func TestSupersessionEvictsOldHandleOnly(t *testing.T) {
	req := require.New(t)
	status := newMemStatus()
	hub := newTestHub(&memMessages{}, status)

	firstSession, firstConn := join(hub, "u1", "alice")
	secondSession, _ := join(hub, "u1", "alice")

	req.Equal([]presence.CloseReason{presence.ReasonSuperseded}, firstConn.terminated)
	req.Equal(1, hub.Registry().Len())
	current, ok := hub.Registry().Get("u1")
	req.True(ok)
	req.Equal(secondSession.ConnID, current.ConnID)

	// The old handle's teardown is a no-op: alice stays online through the
	// newer session.
	hub.Leave(firstSession)
	req.Equal(1, hub.Registry().Len())
	req.True(status.isOnline("u1"))
}

func TestChatMessagePersistsAndBroadcastsToEveryone(t *testing.T) {
	req := require.New(t)
	messages := &memMessages{}
	hub := newTestHub(messages, newMemStatus())

	alice, aliceConn := join(hub, "u1", "alice")
	_, bobConn := join(hub, "u2", "bob")

	hub.HandleChat(alice, ChatData{Text: "  hola bob  "})

	req.Len(messages.stored, 1)
	req.Equal("hola bob", messages.stored[0].Text)

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		msgs := conn.events(EventChatMessage)
		var payload MessagePayload
		req.NoError(json.Unmarshal(msgs[len(msgs)-1].Data, &payload))
		req.Equal("hola bob", payload.Text)
		req.Equal("alice", payload.SenderName)
		req.Equal(chatmodel.KindUser, payload.Kind)
		req.NotEmpty(payload.ID)
		req.NotEmpty(payload.Color)
	}
}

func TestEmptyChatMessageIsDropped(t *testing.T) {
	req := require.New(t)
	messages := &memMessages{}
	hub := newTestHub(messages, newMemStatus())

	alice, aliceConn := join(hub, "u1", "alice")
	before := len(aliceConn.events(EventChatMessage))

	hub.HandleChat(alice, ChatData{Text: ""})
	hub.HandleChat(alice, ChatData{Text: "   \n\t "})

	req.Empty(messages.stored)
	req.Equal(before, len(aliceConn.events(EventChatMessage)))
}

func TestOversizedChatMessageIsTruncated(t *testing.T) {
	req := require.New(t)
	messages := &memMessages{}
	hub := newTestHub(messages, newMemStatus())

	alice, aliceConn := join(hub, "u1", "alice")
	hub.HandleChat(alice, ChatData{Text: strings.Repeat("x", 501)})

	req.Len(messages.stored, 1)
	req.Len([]rune(messages.stored[0].Text), 500)

	msgs := aliceConn.events(EventChatMessage)
	var payload MessagePayload
	req.NoError(json.Unmarshal(msgs[len(msgs)-1].Data, &payload))
	req.Len([]rune(payload.Text), 500)
}

func TestPersistenceFailureAcksSenderOnly(t *testing.T) {
	req := require.New(t)
	messages := &memMessages{appendErr: errors.New("store down")}
	hub := newTestHub(messages, newMemStatus())

	alice, aliceConn := join(hub, "u1", "alice")
	_, bobConn := join(hub, "u2", "bob")

	bobBefore := len(bobConn.events(EventChatMessage))
	hub.HandleChat(alice, ChatData{Text: "does not land"})

	req.Len(aliceConn.events(EventChatError), 1)
	req.Empty(bobConn.events(EventChatError))
	req.Equal(bobBefore, len(bobConn.events(EventChatMessage)))
	req.Equal(2, hub.Registry().Len(), "registry must stay consistent in-process")
}

func TestTypingRelayExcludesSender(t *testing.T) {
	req := require.New(t)
	hub := newTestHub(&memMessages{}, newMemStatus())

	alice, aliceConn := join(hub, "u1", "alice")
	_, bobConn := join(hub, "u2", "bob")

	hub.HandleTyping(alice, true)
	hub.HandleTyping(alice, false)

	req.Empty(aliceConn.events(EventTyping))
	req.Empty(aliceConn.events(EventStopTyping))

	typing := bobConn.events(EventTyping)
	req.Len(typing, 1)
	var payload TypingPayload
	req.NoError(json.Unmarshal(typing[0].Data, &payload))
	req.Equal("alice", payload.User)
	req.NotEmpty(payload.Color)
	req.Len(bobConn.events(EventStopTyping), 1)
}

func TestEvictIdleSkipsDepartureNotice(t *testing.T) {
	req := require.New(t)
	status := newMemStatus()
	hub := newTestHub(&memMessages{}, status)

	_, aliceConn := join(hub, "u1", "alice")
	_, bobConn := join(hub, "u2", "bob")

	entries := hub.Registry().Snapshot()
	var aliceEntry presence.Entry
	for _, e := range entries {
		if e.UserID == "u1" {
			aliceEntry = e
		}
	}

	before := len(bobConn.events(EventChatMessage))
	req.NoError(hub.EvictIdle(aliceEntry))

	req.Equal([]string{"bob"}, rosterNames(bobConn.lastRoster(t)))
	req.False(status.isOnline("u1"))
	req.Equal([]presence.CloseReason{presence.ReasonIdle}, aliceConn.terminated)
	req.Equal(before, len(bobConn.events(EventChatMessage)), "idle eviction sends no departure notice")

	// Re-running the eviction is a no-op.
	req.NoError(hub.EvictIdle(aliceEntry))
}

func TestHistoryIsOldestFirstWithColors(t *testing.T) {
	req := require.New(t)
	messages := &memMessages{}
	hub := newTestHub(messages, newMemStatus())

	for i := 1; i <= 3; i++ {
		_, err := messages.Append(chatmodel.Message{
			SenderID:   "u1",
			SenderName: "alice",
			Text:       fmt.Sprintf("mensaje %d", i),
		})
		req.NoError(err)
	}

	history, err := hub.History(chatmodel.DefaultRoom)
	req.NoError(err)
	req.Len(history, 3)
	req.Equal("mensaje 1", history[0].Text)
	req.Equal("mensaje 3", history[2].Text)
	for _, m := range history {
		req.Equal(presence.ColorFor("u1"), m.Color)
		req.Equal(chatmodel.KindUser, m.Kind)
	}
}
