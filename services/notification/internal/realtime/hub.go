package realtime

import (
	"context"
	"time"

	"taskflow/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

// aLongTimeAgo unblocks a pending read immediately when set as its deadline.
var aLongTimeAgo = time.Unix(1, 0)

// Hub bridges a user's Redis channel to an open WebSocket connection.
type Hub struct {
	redisClient *redis.Client
	logger      *logger.Logger
}

func NewHub(redisClient *redis.Client, logger *logger.Logger) *Hub {
	return &Hub{redisClient: redisClient, logger: logger}
}

// Serve blocks until the client goes away or ctx is cancelled. The
// connection is closed on return.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID string) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pubsub := h.redisClient.Subscribe(ctx, ChannelName(userID))
	defer pubsub.Close()

	// Wait for the subscription to be confirmed so nothing published after
	// Serve starts is lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe to %s: %v", ChannelName(userID), err)
		return
	}

	h.logger.Info("WebSocket connected for user %s", userID)

	redisChannel := pubsub.Channel()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisChannel:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					h.logger.Error("Failed to write WebSocket message: %v", err)
					cancel()
					return
				}
			}
		}
	}()

	h.readLoop(ctx, conn)
	cancel()
	<-done

	h.logger.Info("WebSocket disconnected for user %s", userID)
}

func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(aLongTimeAgo)
	}()

	for {
		messageType, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("WebSocket read error: %v", err)
			}
			return
		}
		if messageType == websocket.CloseMessage {
			return
		}
	}
}
