package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"ride_ledger/internal/models"
)

// RedisPublisher publishes each event as JSON on one pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects and pings; a failed ping is returned so the
// caller can decide to run without the sink.
func NewRedisPublisher(ctx context.Context, opts *redis.Options, channel string) (*RedisPublisher, error) {
	rdb := redis.NewClient(opts)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisPublisher{rdb: rdb, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, ev models.RideEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.rdb.Publish(ctx, p.channel, body).Err()
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
