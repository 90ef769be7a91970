package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"docnum/internal/infrastructure/storage/sqlstore"
	"docnum/pkg/logger"
)

// DefaultStream is the Redis stream events are appended to.
const DefaultStream = "docnum:events"

// RedisPublisher appends messages to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher connects to the Redis server at url (redis://host:port/db).
func NewRedisPublisher(url, stream string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{client: redis.NewClient(opts), stream: stream}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, msg *sqlstore.OutboxMessage) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"id":             msg.ID.String(),
			"event_type":     msg.EventType,
			"aggregate_type": msg.AggregateType,
			"aggregate_id":   msg.AggregateID.String(),
			"payload":        string(msg.Payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// LogPublisher writes every message to the log. It is used when no broker is
// configured so the outbox still drains.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.WithComponent("events")}
}

func (p *LogPublisher) Publish(_ context.Context, msg *sqlstore.OutboxMessage) error {
	p.log.Infow("event",
		"message_id", msg.ID,
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID,
		"payload", string(msg.Payload),
	)
	return nil
}
