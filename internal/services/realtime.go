package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mindbridge-app/mindbridge-backend/internal/database"
	"github.com/mindbridge-app/mindbridge-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types pushed over the realtime gateway.
const (
	EventTypeNotification = "notification"
	EventTypePresence     = "presence"
	EventTypeError        = "error"
)

// UserEvent is the payload broadcast over Redis and WebSocket to one user.
type UserEvent struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification,omitempty"`
	UserID       string               `json:"user_id,omitempty"`
	Online       bool                 `json:"online,omitempty"`
	Error        string               `json:"error,omitempty"`
	Timestamp    time.Time            `json:"timestamp,omitempty"`
}

// UserConn is the minimal interface a gateway connection must satisfy.
type UserConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// userHub is a registry of live connections, keyed by user with one entry
// per connection (a user may have several tabs open).
type userHub struct {
	mu    sync.RWMutex
	conns map[primitive.ObjectID]map[uuid.UUID]UserConn
}

var (
	hub          = &userHub{conns: make(map[primitive.ObjectID]map[uuid.UUID]UserConn)}
	redisStarted sync.Once
)

// RegisterUserConn adds a connection for the user and returns its id.
func RegisterUserConn(userID primitive.ObjectID, conn UserConn) uuid.UUID {
	connID := uuid.New()
	hub.mu.Lock()
	if hub.conns[userID] == nil {
		hub.conns[userID] = make(map[uuid.UUID]UserConn)
	}
	hub.conns[userID][connID] = conn
	hub.mu.Unlock()
	return connID
}

// UnregisterUserConn removes a connection; returns true when it was the
// user's last one.
func UnregisterUserConn(userID primitive.ObjectID, connID uuid.UUID) bool {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if conns, ok := hub.conns[userID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(hub.conns, userID)
			return true
		}
	}
	return false
}

// FanOutUserEvent sends an event to every local connection of the user.
func FanOutUserEvent(userID primitive.ObjectID, event UserEvent) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, conn := range hub.conns[userID] {
		// Non-blocking best-effort send.
		go func(c UserConn) {
			if err := c.WriteJSON(event); err != nil {
				log.Printf("error writing user event to websocket: %v", err)
			}
		}(conn)
	}
}

const userEventChannelPrefix = "notify:user:"

// PublishUserEvent publishes an event to the user's Redis channel so every
// instance can fan it out to its local connections.
func PublishUserEvent(ctx context.Context, userID primitive.ObjectID, event UserEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return database.RedisClient.Publish(ctx, userEventChannelPrefix+userID.Hex(), data).Err()
}

// StartUserEventSubscriber ensures a single shared Redis listener per instance.
func StartUserEventSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runUserEventSubscriber(ctx)
	})
}

func runUserEventSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; realtime subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, userEventChannelPrefix+"*")
			defer pubsub.Close()

			log.Println("✅ Realtime Redis subscriber started (pattern: notify:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				userID, err := primitive.ObjectIDFromHex(strings.TrimPrefix(msg.Channel, userEventChannelPrefix))
				if err != nil {
					continue
				}

				var event UserEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal user event: %v", err)
					continue
				}

				FanOutUserEvent(userID, event)
			}
		}()
	}
}
