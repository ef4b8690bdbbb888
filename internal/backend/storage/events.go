package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"UpWatch/internal/config"
)

type redisEventBus struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisEventBus(cfg *config.RedisConfig, log *slog.Logger) (EventBus, error) {
	client := redis.NewClient(cfg.GetRedisOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("connected to redis")
	return &redisEventBus{client: client, logger: log}, nil
}

func (r *redisEventBus) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe delivers raw payloads until the returned cancel func is called
// or the context ends. Slow consumers drop messages instead of blocking
// the pump.
func (r *redisEventBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan []byte, 16)
	done := make(chan struct{})

	go func() {
		defer close(out)
		src := sub.Channel()
		for {
			select {
			case msg, ok := <-src:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					r.logger.Debug("dropping event for slow subscriber", "channel", channel)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		close(done)
		sub.Close()
	}
	return out, cancel, nil
}

func (r *redisEventBus) Close() error {
	return r.client.Close()
}
