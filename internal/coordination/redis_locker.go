package coordination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token, so
// a holder whose TTL expired cannot free a lock someone else now owns.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockerConfig configures a RedisLocker.
type RedisLockerConfig struct {
	KeyPrefix string
	// TTL bounds how long a crashed holder can block a room.
	TTL time.Duration
	// RetryInterval is the first wait between attempts; it doubles up to MaxRetryInterval.
	RetryInterval    time.Duration
	MaxRetryInterval time.Duration
}

// RedisLocker is a room lock shared by every process using the same Redis.
type RedisLocker struct {
	client redis.UniversalClient
	cfg    RedisLockerConfig
	logger *slog.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client redis.UniversalClient, cfg RedisLockerConfig, logger *slog.Logger) *RedisLocker {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "booking:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 20 * time.Millisecond
	}
	if cfg.MaxRetryInterval <= 0 {
		cfg.MaxRetryInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger.With("component", "redis_locker")}
}

func (l *RedisLocker) key(roomID int64) string {
	return fmt.Sprintf("%slock:room:%d", l.cfg.KeyPrefix, roomID)
}

// Acquire retries SET NX with backoff until it wins or ctx is done. Without a
// deadline on ctx the wait is capped at the lock TTL.
func (l *RedisLocker) Acquire(ctx context.Context, roomID int64) (func(), error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.TTL)
		defer cancel()
	}

	key := l.key(roomID)
	token := uuid.NewString()
	wait := l.cfg.RetryInterval

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("coordination: acquire room %d: %w", roomID, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: room %d: %v", ErrLockTimeout, roomID, ctx.Err())
		case <-timer.C:
		}
		wait *= 2
		if wait > l.cfg.MaxRetryInterval {
			wait = l.cfg.MaxRetryInterval
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release room lock", "room_id", roomID, "error", err)
			}
		})
	}, nil
}
