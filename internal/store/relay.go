package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRelay extends a local Feed across processes. Local changes are
// delivered immediately and also published to a Redis channel; changes
// arriving from other processes are re-published on the local Feed.
type RedisRelay struct {
	local   *Feed
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

type RelayConfig struct {
	Feed    *Feed
	Client  *redis.Client
	Channel string
	Logger  *slog.Logger
}

func NewRedisRelay(cfg *RelayConfig) (*RedisRelay, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Feed == nil {
		return nil, errors.New("feed cannot be nil")
	}
	if cfg.Client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if cfg.Channel == "" {
		return nil, errors.New("channel cannot be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisRelay{
		local:   cfg.Feed,
		client:  cfg.Client,
		channel: cfg.Channel,
		origin:  uuid.NewString(),
		logger:  logger,
	}, nil
}

// Publish delivers c locally and forwards it to other processes. A Redis
// failure is logged; local delivery has already happened.
func (r *RedisRelay) Publish(c Change) {
	r.local.Publish(c)

	c.Origin = r.origin
	data, err := json.Marshal(c)
	if err != nil {
		r.logger.Error("encoding change for relay", "error", err)
		return
	}
	if err := r.client.Publish(context.Background(), r.channel, data).Err(); err != nil {
		r.logger.Warn("relay publish failed", "collection", c.Collection, "id", c.ID, "error", err)
	}
}

// Run receives remote changes until ctx is done. ready, if non-nil, is
// closed once the Redis subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				r.logger.Warn("dropping malformed relay message", "error", err)
				continue
			}
			if c.Origin == r.origin {
				continue
			}
			r.local.Publish(c)
		}
	}
}

func (r *RedisRelay) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
