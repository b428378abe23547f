package coordination

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/example/meeting-booking/internal/scheduler"
)

// AvailabilityCache stores the scheduled bookings of a room for one day,
// keyed by the day's date in the service location (YYYY-MM-DD).
type AvailabilityCache interface {
	Get(ctx context.Context, roomID int64, day string) ([]scheduler.Booking, bool, error)
	Store(ctx context.Context, roomID int64, day string, bookings []scheduler.Booking) error
	// Invalidate drops every cached day of the room.
	Invalidate(ctx context.Context, roomID int64) error
}

// MemoryCache is an in-process AvailabilityCache: a size-bounded LRU whose
// entries expire after a TTL.
type MemoryCache struct {
	lru *expirable.LRU[string, []scheduler.Booking]
}

// NewMemoryCache creates a MemoryCache. Non-positive arguments select defaults.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []scheduler.Booking](maxEntries, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, roomID int64, day string) ([]scheduler.Booking, bool, error) {
	bookings, ok := c.lru.Get(cacheKey(roomID, day))
	if !ok {
		return nil, false, nil
	}
	return cloneBookings(bookings), true, nil
}

func (c *MemoryCache) Store(_ context.Context, roomID int64, day string, bookings []scheduler.Booking) error {
	c.lru.Add(cacheKey(roomID, day), cloneBookings(bookings))
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, roomID int64) error {
	prefix := roomPrefix(roomID)
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
	return nil
}

func roomPrefix(roomID int64) string {
	return fmt.Sprintf("room:%d:", roomID)
}

func cacheKey(roomID int64, day string) string {
	return roomPrefix(roomID) + day
}

func cloneBookings(bookings []scheduler.Booking) []scheduler.Booking {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]scheduler.Booking, len(bookings))
	copy(out, bookings)
	return out
}
