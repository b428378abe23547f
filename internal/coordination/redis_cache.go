package coordination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/meeting-booking/internal/scheduler"
)

// RedisCache is an AvailabilityCache shared across processes. Values are JSON.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCache creates a RedisCache. keyPrefix namespaces every key.
func NewRedisCache(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = "booking:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (c *RedisCache) key(roomID int64, day string) string {
	return c.keyPrefix + "availability:" + cacheKey(roomID, day)
}

func (c *RedisCache) Get(ctx context.Context, roomID int64, day string) ([]scheduler.Booking, bool, error) {
	data, err := c.client.Get(ctx, c.key(roomID, day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("coordination: cache get: %w", err)
	}

	var bookings []scheduler.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, false, fmt.Errorf("coordination: decode cached availability: %w", err)
	}
	return bookings, true, nil
}

func (c *RedisCache) Store(ctx context.Context, roomID int64, day string, bookings []scheduler.Booking) error {
	if bookings == nil {
		bookings = []scheduler.Booking{}
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("coordination: encode availability: %w", err)
	}
	if err := c.client.Set(ctx, c.key(roomID, day), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("coordination: cache set: %w", err)
	}
	return nil
}

// Invalidate scans the room's key space and deletes what it finds.
func (c *RedisCache) Invalidate(ctx context.Context, roomID int64) error {
	pattern := c.keyPrefix + "availability:" + roomPrefix(roomID) + "*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("coordination: scan availability keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("coordination: delete availability keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
