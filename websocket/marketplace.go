package websocket

import (
	"net/http"
	"sync"
	"time"

	"ecoxchange/internal/marketplace"
	"ecoxchange/middlewares"
	"ecoxchange/structs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Renderer shapes a session state for clients.
type Renderer func(marketplace.State) structs.StateResponse

// Client is one websocket connection following a session.
type Client struct {
	Conn      *websocket.Conn
	SessionID string
	writeMu   sync.Mutex
}

// SafeWriteJSON serializes writes to the client's connection.
func (c *Client) SafeWriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteJSON(v)
}

// Hub pushes state snapshots to every connection of a session.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*Client]bool
	render   Renderer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHub builds a hub. allowedOrigins empty accepts any origin.
func NewHub(render Renderer, logger *zap.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients: make(map[string]map[*Client]bool),
		render:  render,
		logger:  logger.With(zap.String("component", "ws_hub")),
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowed) == 0 || allowed[origin]
		},
	}
	return h
}

// Register adds a client.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.SessionID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.SessionID] = set
	}
	set[client] = true
	h.logger.Debug("client registered", zap.String("session", client.SessionID), zap.Int("connections", len(set)))
}

// Unregister removes a client and closes its connection.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[client.SessionID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	client.Conn.Close()
}

// ClientCount returns the number of connections following sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// StateChanged pushes the new state to the session's clients.
func (h *Hub) StateChanged(sessionID string, state marketplace.State) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[sessionID]))
	for c := range h.clients[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	msg := structs.StateMessage{Type: "state", State: h.render(state)}
	for _, c := range targets {
		if err := c.SafeWriteJSON(msg); err != nil {
			h.logger.Warn("push failed, dropping client", zap.String("session", sessionID), zap.Error(err))
			go h.Unregister(c)
		}
	}
}

// Handler upgrades an authenticated request and follows its session until
// the client goes away. It must run behind middlewares.AuthMiddleware.
func (h *Hub) Handler(states middlewares.SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := middlewares.SessionID(c)
		state, err := states.State(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not found or expired"})
			return
		}

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := &Client{Conn: conn, SessionID: sessionID}
		h.Register(client)
		defer h.Unregister(client)

		if err := client.SafeWriteJSON(structs.StateMessage{Type: "state", State: h.render(state)}); err != nil {
			return
		}

		// Clients only listen; reading drives close detection.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
