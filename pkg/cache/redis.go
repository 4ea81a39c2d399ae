package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

type RedisClient struct {
	Client *redis.Client
}

func NewRedisClient(cfg *Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisClient{Client: client}, nil
}

func (c *RedisClient) Publish(ctx context.Context, channel, payload string) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// PSubscribe subscribes to a channel pattern. The caller owns the returned
// PubSub and must Close it.
func (c *RedisClient) PSubscribe(ctx context.Context, pattern string) *redis.PubSub {
	return c.Client.PSubscribe(ctx, pattern)
}

func (c *RedisClient) Close() error {
	return c.Client.Close()
}
