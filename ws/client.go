package ws

import (
	"sync"
	"time"

	"flota_console/internal/console"
	"flota_console/internal/logger"
	"flota_console/pkg/apperrors"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// IncomingMessage is a request from the browser.
type IncomingMessage struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

// Actions
const (
	ActionSnapshot = "snapshot"
	ActionPing     = "ping"
)

// KindState answers a snapshot request; KindError reports a failed request.
const (
	KindState = "state"
	KindError = "error"
	KindPong  = "pong"
)

// Client pushes the events of one workspace to one connection.
type Client struct {
	ID        string
	SessionID string

	conn        *websocket.Conn
	hub         *Hub
	workspace   *console.Workspace
	events      <-chan console.Event
	unsubscribe func()

	mu     sync.Mutex
	send   chan any
	closed bool
}

func newClient(id, sessionID string, conn *websocket.Conn, hub *Hub, workspace *console.Workspace) *Client {
	events, unsubscribe := workspace.Subscribe()
	return &Client{
		ID:          id,
		SessionID:   sessionID,
		conn:        conn,
		hub:         hub,
		workspace:   workspace,
		events:      events,
		unsubscribe: unsubscribe,
		send:        make(chan any, 64),
	}
}

// trySend queues msg; a full queue drops it.
func (c *Client) trySend(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		logger.Warn("Live view client queue full, dropping message", "client_id", c.ID)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.unsubscribe()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg IncomingMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Live view read error", "client_id", c.ID, "error", err)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// forwardPump relays workspace events until the subscription ends.
func (c *Client) forwardPump() {
	for ev := range c.events {
		c.trySend(ev)
	}
	// The workspace closed, or the client did; only the former still sends.
	c.trySend(console.Event{Kind: console.EventClosed})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Warn("Live view write error", "client_id", c.ID, "error", err)
				return
			}
			if ev, isEvent := msg.(console.Event); isEvent && ev.Kind == console.EventClosed {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg IncomingMessage) {
	switch msg.Action {
	case ActionSnapshot:
		rc, err := c.workspace.Console(msg.Resource)
		if err != nil {
			c.trySend(console.Event{Kind: KindError, Resource: msg.Resource, State: apperrors.UserMessage(err)})
			return
		}
		c.trySend(console.Event{Kind: KindState, Resource: msg.Resource, State: rc.Snapshot()})

	case ActionPing:
		c.trySend(console.Event{Kind: KindPong})

	default:
		logger.Debug("Unhandled live view action", "client_id", c.ID, "action", msg.Action)
	}
}
