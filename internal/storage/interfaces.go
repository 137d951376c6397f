package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/market-indicators/internal/models"
)

// CandleStorage reads candles persisted by an upstream collector
type CandleStorage interface {
	// GetLatestCandles retrieves the latest N candles for a symbol in
	// chronological order. limit <= 0 returns every candle.
	GetLatestCandles(ctx context.Context, symbol string, limit int) ([]models.Candle, error)

	// Close closes the storage connection
	Close() error
}

// RedisClient defines the Redis operations the service relies on
type RedisClient interface {
	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Set operations
	SetAdd(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetRemove(ctx context.Context, key string, members ...string) error

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}
