package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// clientMessage is what clients send over the socket.
type clientMessage struct {
	Event string `json:"event"` // subscribe_job, unsubscribe_job, ping
	JobID string `json:"jobId,omitempty"`
}

// Client is one WebSocket connection belonging to a user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan Envelope
	jobs   map[string]bool // job rooms this client joined; guarded by hub.mu
	logger *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, logger *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan Envelope, sendBuffer),
		jobs:   make(map[string]bool),
		logger: logger,
	}
}

// trySend queues an envelope without blocking. A slow client loses messages
// rather than stalling the broadcast; there is no delivery guarantee.
func (c *Client) trySend(env Envelope) {
	select {
	case c.send <- env:
	default:
	}
}

// readPump consumes client events until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		close(c.send)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("ws read error", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		switch msg.Event {
		case "subscribe_job":
			if msg.JobID != "" {
				c.hub.subscribe(c, msg.JobID)
			}
		case "unsubscribe_job":
			if msg.JobID != "" {
				c.hub.unsubscribe(c, msg.JobID)
			}
		case "ping":
			c.trySend(Envelope{Event: "pong"})
		}
	}
}

// writePump flushes queued envelopes and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
