package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mindbridge-app/mindbridge-backend/internal/services"
)

var userEventUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// wsConn serializes writes; gorilla connections do not allow concurrent writers.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

type realtimeClientMessage struct {
	Type string `json:"type"` // "ping"
}

// UserEvents upgrades to a WebSocket that receives the caller's realtime
// events (notifications). Connecting marks the user online; client pings
// refresh presence; the last disconnect marks the user offline.
func UserEvents(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		// Browser WebSocket clients cannot set headers.
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	userID, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	raw, err := userEventUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &wsConn{conn: raw}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connID := services.RegisterUserConn(userID, conn)
	services.SetUserOnline(ctx, userID)

	defer func() {
		if last := services.UnregisterUserConn(userID, connID); last {
			services.SetUserOffline(context.Background(), userID)
		}
	}()

	raw.SetReadLimit(64 * 1024)
	raw.SetReadDeadline(time.Now().Add(services.PresenceTTL))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(services.PresenceTTL))
		return nil
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}
		raw.SetReadDeadline(time.Now().Add(services.PresenceTTL))

		var msg realtimeClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			services.TouchUserPresence(ctx, userID)
			conn.WriteJSON(map[string]interface{}{"type": "pong", "timestamp": time.Now().UTC()})
		default:
			// Ignore unknown types.
		}
	}
}
