package websocket

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"gomoku-platform/backend/internal/auth"
	"gomoku-platform/backend/internal/game"
)

// AppHandler receives SEND frames addressed to /app destinations.
type AppHandler interface {
	HandleSend(userID, destination string, body []byte) error
}

// Upgrader configures the WebSocket upgrader
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Router owns frame dispatch for all connections.
type Router struct {
	hub  *Hub
	auth *auth.Service
	app  AppHandler
}

// NewRouter wires the hub, token validator and application handler.
func NewRouter(hub *Hub, authService *auth.Service, app AppHandler) *Router {
	return &Router{hub: hub, auth: authService, app: app}
}

// HandleWebSocket upgrades the HTTP connection and starts the pumps.
// A valid ?token= authenticates immediately; otherwise the client must
// authenticate with a CONNECT frame before anything else is accepted.
func (r *Router) HandleWebSocket(c *gin.Context) {
	conn, err := Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("[WS] Upgrade error:", err)
		return
	}

	client := newClient(conn, r.hub)
	r.hub.register(client)

	if token := c.Query("token"); token != "" {
		if userID, err := r.auth.ValidateToken(token); err == nil {
			r.hub.authenticate(client, userID)
		}
	}

	go client.writePump()
	go client.readPump(r)
}

func (r *Router) handleFrame(c *Client, f Frame) {
	switch f.Command {
	case CmdConnect:
		r.handleConnect(c, f)
	case CmdSubscribe:
		if !r.requireAuth(c) {
			return
		}
		id, dest := f.Headers["id"], f.Headers["destination"]
		if id == "" || dest == "" {
			r.hub.SendError(c, "INVALID_INPUT", "SUBSCRIBE requires id and destination headers")
			return
		}
		r.hub.subscribe(c, id, dest)
	case CmdUnsubscribe:
		if !r.requireAuth(c) {
			return
		}
		if f.Headers["id"] == "" {
			r.hub.SendError(c, "INVALID_INPUT", "UNSUBSCRIBE requires an id header")
			return
		}
		r.hub.unsubscribe(c, f.Headers["id"])
	case CmdSend:
		if !r.requireAuth(c) {
			return
		}
		dest := f.Headers["destination"]
		if !strings.HasPrefix(dest, "/app/") {
			r.hub.SendError(c, "INVALID_INPUT", "SEND destination must start with /app/")
			return
		}
		if err := r.app.HandleSend(c.User(), dest, f.Body); err != nil {
			r.hub.SendError(c, game.ErrorCode(err), err.Error())
		}
	default:
		r.hub.SendError(c, "INVALID_INPUT", "unsupported command "+f.Command)
	}
}

// handleConnect authenticates from the Authorization header, with a bare
// token header as fallback for clients that cannot set Authorization.
func (r *Router) handleConnect(c *Client, f Frame) {
	token := f.Headers["Authorization"]
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		token = f.Headers["token"]
	}

	userID, err := r.auth.ValidateToken(token)
	if err != nil {
		r.hub.SendError(c, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}

	r.hub.authenticate(c, userID)
	frame := NewFrame(CmdConnected, nil, "user-id", userID)
	c.enqueue(frame.Marshal())
	log.Printf("[WS] User %s connected", userID)
}

func (r *Router) requireAuth(c *Client) bool {
	if c.User() == "" {
		r.hub.SendError(c, "UNAUTHORIZED", "authenticate with a CONNECT frame first")
		return false
	}
	return true
}
