package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/internal/pools"
	"github.com/highlightreel/backend/pkg/response"
)

const (
	sendBuffer   = 64
	readLimit    = 4096
	writeTimeout = 10 * time.Second
)

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PoolChecker decides whether a viewer may watch a pool.
type PoolChecker interface {
	CheckPool(ctx context.Context, viewer *middleware.Identity, poolID uuid.UUID) (*models.Pool, error)
}

// Client represents a single WebSocket connection watching a pool.
type Client struct {
	ID     string
	PoolID uuid.UUID
	UserID uuid.UUID // uuid.Nil for anonymous viewers of public pools
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := len(allowedOrigins) == 0
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || origin == "" {
				return true
			}
			_, ok := origins[origin]
			return ok
		},
	}
}

// ServeWs handles GET /ws?pool_id=&token=. The token is optional for public
// pools; private pools need a viewer the pool service accepts.
func ServeWs(hub *Hub, tokens middleware.TokenValidator, access PoolChecker, allowedOrigins []string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	upgrader := newUpgrader(allowedOrigins)
	return func(c *gin.Context) {
		poolID, err := uuid.Parse(c.Query("pool_id"))
		if err != nil {
			response.BadRequest(c, "pool_id required")
			return
		}
		var viewer *middleware.Identity
		if token := c.Query("token"); token != "" {
			id, err := tokens.Identify(token)
			if err != nil {
				response.Unauthorized(c, "invalid token")
				return
			}
			viewer = &id
		}
		if _, err := access.CheckPool(c.Request.Context(), viewer, poolID); err != nil {
			pools.WriteError(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:     uuid.New().String(),
			PoolID: poolID,
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, sendBuffer),
			logger: logger,
		}
		if viewer != nil {
			client.UserID = viewer.UserID
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump consumes client frames until the connection drops. Viewers only
// listen; "join" asks for the current viewer count.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err), zap.String("client_id", c.ID))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "join":
			c.hub.Broadcast(c.PoolID, EventViewerCount, map[string]int{
				"count": c.hub.ViewerCount(c.PoolID),
			})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
