package chat

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DavidGarciaCosta/portal-productos/internal/auth"
	"github.com/DavidGarciaCosta/portal-productos/internal/service/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxFrameSize   = 8192
	sendBufferSize = 256
)

type termination struct {
	reason presence.CloseReason
	detail string
}

// Client is the per-connection session driver. After handshake
// authentication it moves to the active state, pumping events between the
// websocket and the hub until disconnect or forced termination. Teardown is
// a single transition: racing paths funnel through one sync.Once.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session *presence.Session
	send    chan []byte
	forced  chan termination
	done    chan struct{}
	once    sync.Once
	log     *slog.Logger
}

// NewClient binds an upgraded websocket connection to a verified identity.
func NewClient(hub *Hub, conn *websocket.Conn, claims *auth.Claims, log *slog.Logger) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		forced: make(chan termination, 1),
		done:   make(chan struct{}),
		log:    log,
	}
	c.session = presence.NewSession(uuid.NewString(), claims.UserID, claims.Username, claims.Role, c)
	return c
}

// Session exposes the live session, mainly for tests.
func (c *Client) Session() *presence.Session {
	return c.session
}

// Run activates the session and blocks until the connection terminates.
func (c *Client) Run() {
	c.hub.Join(c.session)
	go c.writePump()
	c.readPump()
}

// Send enqueues a payload without blocking. Implements presence.Conn.
func (c *Client) Send(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Terminate records a forced-termination signal for the write loop. The
// channel is buffered so the signal is never lost while a send is in
// flight. Implements presence.Conn.
func (c *Client) Terminate(reason presence.CloseReason, detail string) {
	select {
	case c.forced <- termination{reason: reason, detail: detail}:
	default:
	}
}

func (c *Client) readPump() {
	defer c.shutdown()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("websocket read error", "user", c.session.Username, "error", err)
			}
			return
		}

		c.hub.Registry().Touch(c.session.UserID, time.Now())
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var env Inbound
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("invalid message envelope", "user", c.session.Username, "error", err)
		return
	}

	switch env.Type {
	case EventChatMessage:
		var data ChatData
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &data); err != nil {
				// Tolerate a bare string payload.
				var text string
				if json.Unmarshal(env.Data, &text) != nil {
					c.log.Debug("invalid chat payload", "user", c.session.Username)
					return
				}
				data.Text = text
			}
		}
		c.hub.HandleChat(c.session, data)
	case EventTyping:
		c.hub.HandleTyping(c.session, true)
	case EventStopTyping:
		c.hub.HandleTyping(c.session, false)
	default:
		c.log.Debug("unknown event type", "user", c.session.Username, "type", env.Type)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case t := <-c.forced:
			c.deliverTermination(t)
			return

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// deliverTermination informs the client why the server is closing the
// connection before the close frame goes out.
func (c *Client) deliverTermination(t termination) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if t.reason == presence.ReasonSuperseded {
		if payload, err := json.Marshal(Outbound{Type: EventForceDisconnect, Data: t.detail}); err == nil {
			_ = c.conn.WriteMessage(websocket.TextMessage, payload)
		}
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, t.detail)
	_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
}

// shutdown runs the terminal transition exactly once, no matter how many
// paths (read error, forced termination, write failure) race into it.
func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Leave(c.session)
		_ = c.conn.Close()
	})
}
