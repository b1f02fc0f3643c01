// Package cache wraps the Redis client shared by the session cart and the catalog cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisClient holds the Redis client connection.
type RedisClient struct {
	client *redis.Client
	log    logrus.FieldLogger
}

// Config holds Redis connection details.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(cfg Config, log logrus.FieldLogger) (*RedisClient, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is not configured")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.WithField("addr", cfg.Addr).Infof("Connected to Redis (%s)", pong)

	return &RedisClient{client: client, log: log}, nil
}

// Ping reports whether Redis answers.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisClient) Close() {
	if c.client != nil {
		if err := c.client.Close(); err != nil {
			c.log.WithError(err).Warn("Error closing Redis connection")
			return
		}
		c.log.Info("Redis connection closed.")
	}
}

// GetClient returns the underlying *redis.Client instance.
func (c *RedisClient) GetClient() *redis.Client {
	return c.client
}
