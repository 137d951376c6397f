package layout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mohamedkhairy/market-indicators/internal/models"
	"github.com/mohamedkhairy/market-indicators/internal/storage"
	"github.com/mohamedkhairy/market-indicators/pkg/logger"
)

// DefaultRedisKeyPrefix is the default prefix for layout keys in Redis
const DefaultRedisKeyPrefix = "layout:"

// RedisStore is a Redis-backed Store. Layouts are stored as JSON at
// {prefix}{name}; the set {prefix}names holds every saved name.
type RedisStore struct {
	redis     storage.RedisClient
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// NewRedisStore creates a Redis-backed layout store. ttl 0 keeps layouts
// forever.
func NewRedisStore(redis storage.RedisClient, keyPrefix string, ttl time.Duration) (*RedisStore, error) {
	if redis == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		redis:     redis,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func (s *RedisStore) key(name string) string { return s.keyPrefix + name }

func (s *RedisStore) namesKey() string { return s.keyPrefix + reservedName }

func (s *RedisStore) Save(ctx context.Context, l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l = cloneLayout(l)
	l.UpdatedAt = s.now().UTC()

	key := s.key(l.Name)
	if err := s.redis.Set(ctx, key, l, s.ttl); err != nil {
		return fmt.Errorf("failed to store layout in Redis: %w", err)
	}
	if err := s.redis.SetAdd(ctx, s.namesKey(), l.Name); err != nil {
		// Try to clean up the layout key if set operation fails
		s.redis.Delete(ctx, key)
		return fmt.Errorf("failed to add layout name to set: %w", err)
	}

	logger.Debug("Saved layout to Redis",
		logger.String("layout", l.Name),
		logger.Int("indicators", len(l.Indicators)),
	)
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (Layout, error) {
	if err := ValidateName(name); err != nil {
		return Layout{}, err
	}

	key := s.key(name)
	exists, err := s.redis.Exists(ctx, key)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to check layout in Redis: %w", err)
	}
	if !exists {
		return Layout{}, fmt.Errorf("%w: %s", models.ErrLayoutNotFound, name)
	}

	var l Layout
	if err := s.redis.GetJSON(ctx, key, &l); err != nil {
		return Layout{}, fmt.Errorf("failed to get layout from Redis: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid layout data in Redis: %w", err)
	}
	return l, nil
}

// List returns saved names. Names whose key expired are pruned from the set.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	members, err := s.redis.SetMembers(ctx, s.namesKey())
	if err != nil {
		return nil, fmt.Errorf("failed to get layout names from Redis: %w", err)
	}

	names := make([]string, 0, len(members))
	for _, name := range members {
		exists, err := s.redis.Exists(ctx, s.key(name))
		if err != nil {
			return nil, fmt.Errorf("failed to check layout in Redis: %w", err)
		}
		if !exists {
			if err := s.redis.SetRemove(ctx, s.namesKey(), name); err != nil {
				logger.Warn("Failed to prune expired layout name",
					logger.String("layout", name),
					logger.ErrorField(err),
				)
			}
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := s.redis.Delete(ctx, s.key(name)); err != nil {
		return fmt.Errorf("failed to delete layout from Redis: %w", err)
	}
	if err := s.redis.SetRemove(ctx, s.namesKey(), name); err != nil {
		return fmt.Errorf("failed to remove layout name from set: %w", err)
	}
	return nil
}
