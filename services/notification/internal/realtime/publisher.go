package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"taskflow/services/notification/internal/entity"

	"github.com/redis/go-redis/v9"
)

const (
	EventNotification = "notification"
	EventUnreadCount  = "unreadCount"
)

// Event is the envelope written to a user's channel and forwarded verbatim
// to the user's WebSocket.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type UnreadCount struct {
	Count int64 `json:"count"`
}

// Publisher pushes live events to a user's channel. Delivery is at most
// once: nothing is buffered for users that are not connected.
type Publisher interface {
	PublishNotification(ctx context.Context, userID string, n *entity.Notification) error
	PublishUnreadCount(ctx context.Context, userID string, count int64) error
}

func ChannelName(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishNotification(ctx context.Context, userID string, n *entity.Notification) error {
	return p.publish(ctx, userID, Event{Event: EventNotification, Data: n})
}

func (p *RedisPublisher) PublishUnreadCount(ctx context.Context, userID string, count int64) error {
	return p.publish(ctx, userID, Event{Event: EventUnreadCount, Data: UnreadCount{Count: count}})
}

func (p *RedisPublisher) publish(ctx context.Context, userID string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Event, err)
	}
	if err := p.client.Publish(ctx, ChannelName(userID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event to %s: %w", event.Event, ChannelName(userID), err)
	}
	return nil
}
