package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	// sendBuffer is the per-client outbound queue. A client that lets it
	// fill is disconnected rather than silently losing frames.
	sendBuffer = 256
)

// Client is one websocket connection. The user binding is empty until a
// CONNECT frame authenticates it.
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
	done chan struct{}

	// userID has its own guard because broadcast goroutines read it
	// while the read pump may be re-authenticating.
	mu     sync.RWMutex
	userID string

	// subscription id -> destination, guarded by the hub mutex
	subs map[string]string
}

// User returns the authenticated user id, or "" before CONNECT.
func (c *Client) User() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) setUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		conn: conn,
		hub:  hub,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		subs: make(map[string]string),
	}
}

// enqueue hands a marshalled frame to the write pump. A full buffer
// means the consumer is too slow; the connection is dropped so the
// client reconnects and resyncs instead of living on a stale stream.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Client %s too slow, disconnecting", c.User())
		c.hub.Unregister(c)
	}
}

// readPump consumes frames until the connection dies, routing each one
// through the router. It owns the connection's read side.
func (c *Client) readPump(router *Router) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		frame, err := ParseFrame(data)
		if err != nil {
			c.hub.SendError(c, "INVALID_INPUT", err.Error())
			continue
		}
		router.handleFrame(c, frame)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It owns the connection's write side.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
