package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/R3E-Network/sira_platform/pkg/logger"
)

// RedisBridge shares deliveries between instances over a Redis pub/sub
// channel. Every instance, including the publisher, delivers what it receives
// to its own connections.
type RedisBridge struct {
	client  *redis.Client
	channel string
	log     *logger.Logger
}

// NewRedisBridge connects to the Redis server at url.
func NewRedisBridge(url, channel string, log *logger.Logger) (*RedisBridge, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if channel == "" {
		channel = "sira:realtime"
	}
	if log == nil {
		log = logger.NewDefault("realtime-redis")
	}
	return &RedisBridge{client: redis.NewClient(opts), channel: channel, log: log}, nil
}

// Ping checks connectivity.
func (b *RedisBridge) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Publish sends d to every subscribed instance.
func (b *RedisBridge) Publish(ctx context.Context, d Delivery) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes and calls deliver for every received message until ctx is
// cancelled.
func (b *RedisBridge) Run(ctx context.Context, deliver func(Delivery)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				b.log.WithError(err).Warn("discarding malformed realtime payload")
				continue
			}
			deliver(d)
		}
	}
}

// Close releases the client.
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
