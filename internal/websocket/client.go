package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client is one authenticated relay connection. Identity is attached at
// admission and never changes for the connection's lifetime.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	username string

	// Room membership; written only by the hub loop under its lock.
	room string

	ctx        context.Context
	cancel     context.CancelFunc
	closed     int32
	sendClosed int32
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, username string) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:       uuid.New().String(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		userID:   userID,
		username: username,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) GetID() string {
	return c.id
}

func (c *Client) GetUserID() string {
	return c.userID
}

func (c *Client) GetUsername() string {
	return c.username
}

// GetRoom returns the room the client was joined to, or "" before
// admission and after teardown.
func (c *Client) GetRoom() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.room
}

func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels its context, which stops
// both pumps.
func (c *Client) close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		c.cancel()
	}
}

// closeSendChannel is called by the hub loop only, after the client has
// left all membership maps; no enqueue can race with it.
func (c *Client) closeSendChannel() {
	if atomic.CompareAndSwapInt32(&c.sendClosed, 0, 1) {
		close(c.send)
	}
}

// enqueue hands an envelope to the write pump. Called from the hub loop
// only. A full buffer tears the client down; the failure is never
// reported to the sender.
func (c *Client) enqueue(data []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return ErrClientDisconnected
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.userID)
		c.close()
		return ErrClientDisconnected
	}
}

func (c *Client) readPump() {
	defer func() {
		c.close()

		select {
		case c.hub.unregister <- c:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending unregister request", "clientID", c.id, "userID", c.userID)
		}

		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID)
			}
			break
		}

		select {
		case c.hub.inbound <- &ClientMessage{Client: c, Data: data}:
		case <-time.After(5 * time.Second):
			slog.Warn("Timeout sending message to hub", "clientID", c.id, "userID", c.userID)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "userID", c.userID, "error", err)
				return
			}

		case <-ticker.C:
			if c.isClosed() {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// ServeWS upgrades an already-authenticated request and admits the
// connection. Registration (and the room join it implies) completes
// before the pumps start, so no message can outrun the join.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request, userID, username string) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", userID, "error", err)
		return
	}

	client := NewClient(hub, conn, userID, username)
	slog.Info("New WebSocket connection established", "clientID", client.id, "userID", userID)

	select {
	case hub.register <- client:
	case <-time.After(5 * time.Second):
		slog.Error("Timeout sending registration request", "clientID", client.id, "userID", userID)
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
