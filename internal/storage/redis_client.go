package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedkhairy/market-indicators/internal/config"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// RedisClientImpl implements RedisClient on go-redis
type RedisClientImpl struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client and checks the connection
func NewRedisClient(cfg config.RedisConfig) (RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
	)

	return &RedisClientImpl{client: rdb}, nil
}

// NewRedisClientFrom wraps an existing go-redis client
func NewRedisClientFrom(client *redis.Client) RedisClient {
	return &RedisClientImpl{client: client}
}

// Set stores value as JSON with TTL, 0 meaning no expiry
func (r *RedisClientImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return r.client.Set(ctx, key, jsonData, ttl).Err()
}

// Get gets a value by key, "" when missing
func (r *RedisClientImpl) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return result, err
}

// GetJSON gets a JSON value and unmarshals it. A missing key leaves dest
// untouched.
func (r *RedisClientImpl) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete deletes a key
func (r *RedisClientImpl) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Exists checks if a key exists
func (r *RedisClientImpl) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	return count > 0, err
}

// SetAdd adds members to a set
func (r *RedisClientImpl) SetAdd(ctx context.Context, key string, members ...string) error {
	return r.client.SAdd(ctx, key, toArgs(members)...).Err()
}

// SetMembers gets all members of a set
func (r *RedisClientImpl) SetMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

// SetRemove removes members from a set
func (r *RedisClientImpl) SetRemove(ctx context.Context, key string, members ...string) error {
	return r.client.SRem(ctx, key, toArgs(members)...).Err()
}

// Ping checks connectivity
func (r *RedisClientImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisClientImpl) Close() error {
	return r.client.Close()
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
