package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/cardsync/internal/logging"
)

var ErrHeld = errors.New("sync already running for this board and calendar")

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker keeps two processes from syncing the same board/calendar pair at
// once. When redis is unreachable it fails open: the run proceeds unlocked.
type Locker struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log *zap.Logger
}

func New(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) *Locker {
	return &Locker{rdb: rdb, ttl: ttl, log: logging.OrNop(log)}
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func Key(boardID, calendarID string) string {
	return fmt.Sprintf("cardsync:lock:%s:%s", boardID, calendarID)
}

// Acquire takes the lock for key. The returned release func is always
// non-nil and safe to call once the run is over.
func (l *Locker) Acquire(ctx context.Context, key string) (func(context.Context), error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		l.log.Warn("run lock unavailable, continuing without it", zap.String("key", key), zap.Error(err))
		return func(context.Context) {}, nil
	}
	if !ok {
		return func(context.Context) {}, ErrHeld
	}
	l.log.Debug("run lock acquired", zap.String("key", key), zap.Duration("ttl", l.ttl))
	return func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn("run lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
