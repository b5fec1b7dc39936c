package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher mirrors server events onto an external message bus.
// Publishing is fire-and-forget: failures are logged, never surfaced.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
	Close() error
}

// NopPublisher discards everything. Used when the bus is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) {}
func (NopPublisher) Close() error                         { return nil }

type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// RedisPublisher publishes events on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(url, channel string, logger *zap.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisPublisher{client: client, channel: channel, logger: logger}, nil
}

// NewRedisPublisherWithClient wraps an existing client (for testing).
func NewRedisPublisherWithClient(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Publish sends the event on the configured channel. Delivery failures are
// logged only.
func (p *RedisPublisher) Publish(ctx context.Context, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		p.logger.Warn("bus payload not serializable", zap.String("event", event), zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn("bus publish failed", zap.String("event", event), zap.Error(err))
	}
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
