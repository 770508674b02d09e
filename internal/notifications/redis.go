package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Envelope is the JSON document published to the Redis channel.
type Envelope struct {
	Event   Event     `json:"event"`
	Payload Payload   `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

type redisService struct {
	client  *redis.Client
	channel string
}

func newRedisService(rawURL, channel string, timeout time.Duration) (*redisService, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = timeout
	opts.WriteTimeout = timeout
	return &redisService{client: redis.NewClient(opts), channel: channel}, nil
}

func (r *redisService) Publish(ctx context.Context, event Event, payload Payload) error {
	data, err := json.Marshal(Envelope{Event: event, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode redis notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification: %w", err)
	}
	return nil
}

func (r *redisService) Close() error {
	return r.client.Close()
}
