package localstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	Prefix        string
	Channel       string
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultRedisConfig returns settings for a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		Prefix:        "masteradmin:",
		Channel:       "masteradmin:changes",
		MaxRetries:    3,
		RetryInterval: time.Second,
	}
}

// ConnectRedis opens a client and pings it, retrying on failure.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	var lastErr error
	for i := 0; i <= cfg.MaxRetries; i++ {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			lastErr = fmt.Errorf("pinging redis: %w", err)
			client.Close()
			if i < cfg.MaxRetries {
				time.Sleep(cfg.RetryInterval)
			}
			continue
		}
		return client, nil
	}
	return nil, fmt.Errorf("connecting to redis after %d retries: %w", cfg.MaxRetries, lastErr)
}

// RedisBackend stores values as Redis strings and announces every write on a
// pub/sub channel so that other processes sharing the store can react.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	channel string
}

func NewRedisBackend(client *redis.Client, cfg RedisConfig) *RedisBackend {
	return &RedisBackend{
		client:  client,
		prefix:  cfg.Prefix,
		channel: cfg.Channel,
	}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := b.client.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.prefix+key, value, 0)
	pipe.Publish(ctx, b.channel, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Watch(ctx context.Context, fn func(key string)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				fn(msg.Payload)
			}
		}
	}()
	return nil
}
