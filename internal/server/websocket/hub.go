package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// ErrorPayload is the body of frames pushed to /user/queue/errors.
type ErrorPayload struct {
	ErrorCode     string `json:"errorCode"`
	Message       string `json:"message"`
	ExceptionType string `json:"exceptionType"`
}

// exceptionType groups wire error codes into coarse failure classes for
// the error payload.
func exceptionType(code string) string {
	switch code {
	case "INVALID_INPUT", "INVALID_MOVE":
		return "IllegalMoveError"
	case "UNAUTHORIZED":
		return "UnauthorizedError"
	case "NOT_YOUR_TURN", "GAME_COMPLETED", "GAME_NOT_FOUND":
		return "GameStateError"
	default:
		return "InternalError"
	}
}

// Hub tracks connections, their users and their topic subscriptions.
// All maps are guarded by mu; client.subs is mutated only through hub
// methods so it shares the same guard.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	byUser  map[string]map[*Client]bool
	topics  map[string]map[*Client]bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		byUser:  make(map[string]map[*Client]bool),
		topics:  make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// authenticate binds the client to its user after a CONNECT frame.
func (h *Hub) authenticate(c *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	c.setUser(userID)
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]bool)
	}
	h.byUser[userID][c] = true
}

// Unregister removes the client everywhere and closes its send queue.
// Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	if user := c.User(); user != "" {
		if set := h.byUser[user]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.byUser, user)
			}
		}
	}
	for _, dest := range c.subs {
		if set := h.topics[dest]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.topics, dest)
			}
		}
	}
	close(c.done)
}

func (h *Hub) subscribe(c *Client, id, destination string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	c.subs[id] = destination
	if h.topics[destination] == nil {
		h.topics[destination] = make(map[*Client]bool)
	}
	h.topics[destination][c] = true
}

func (h *Hub) unsubscribe(c *Client, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	dest, ok := c.subs[id]
	if !ok {
		return
	}
	delete(c.subs, id)
	// Another subscription of the same client may still cover the
	// destination.
	for _, d := range c.subs {
		if d == dest {
			return
		}
	}
	if set := h.topics[dest]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, dest)
		}
	}
}

// subscriptionID returns one of the client's subscription ids for the
// destination, if any. Caller holds mu.
func subscriptionID(c *Client, destination string) (string, bool) {
	for id, d := range c.subs {
		if d == destination {
			return id, true
		}
	}
	return "", false
}

// BroadcastTopic pushes a MESSAGE frame to every subscriber of the
// topic.
func (h *Hub) BroadcastTopic(destination string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] Encode broadcast for %s: %v", destination, err)
		return
	}

	h.mu.RLock()
	targets := make(map[*Client]string)
	for c := range h.topics[destination] {
		if id, ok := subscriptionID(c, destination); ok {
			targets[c] = id
		}
	}
	h.mu.RUnlock()

	for c, id := range targets {
		frame := NewFrame(CmdMessage, body, "destination", destination, "subscription", id)
		c.enqueue(frame.Marshal())
	}
}

// SendToUser pushes a MESSAGE frame to every connection of the user.
// Connections that subscribed to the destination get their subscription
// id echoed back; the rest receive the frame without one.
func (h *Hub) SendToUser(userID, destination string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[WS] Encode push for %s: %v", destination, err)
		return
	}

	h.mu.RLock()
	targets := make(map[*Client]string)
	for c := range h.byUser[userID] {
		id, _ := subscriptionID(c, destination)
		targets[c] = id
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		log.Printf("[WS] No connection for user %s, dropping push to %s", userID, destination)
		return
	}

	for c, id := range targets {
		headers := []string{"destination", destination}
		if id != "" {
			headers = append(headers, "subscription", id)
		}
		frame := NewFrame(CmdMessage, body, headers...)
		c.enqueue(frame.Marshal())
	}
}

// SendError pushes an ERROR-shaped payload to the client's error queue.
func (h *Hub) SendError(c *Client, code, message string) {
	body, err := json.Marshal(ErrorPayload{ErrorCode: code, Message: message, ExceptionType: exceptionType(code)})
	if err != nil {
		return
	}
	frame := NewFrame(CmdError, body, "destination", "/user/queue/errors")
	c.enqueue(frame.Marshal())
}

// ConnectionCount reports active connections, for the health endpoint.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
