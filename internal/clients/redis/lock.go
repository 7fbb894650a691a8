package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// DocLocker serializes first-time ingestion per document so concurrent
// questions about the same unindexed document do not both populate the
// namespace.
type DocLocker interface {
	// Acquire blocks until the lock for key is held or ctx is done. The
	// returned release func is safe to call once.
	Acquire(ctx context.Context, key string) (func(), error)
}

type docLock struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewDocLocker(log *logger.Logger) (DocLocker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &docLock{
		log:    log.With("service", "RedisDocLocker"),
		rdb:    rdb,
		prefix: "doclock:",
		ttl:    5 * time.Minute,
	}, nil
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

func (l *docLock) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("doc locker not initialized")
	}
	fullKey := l.prefix + strings.TrimSpace(key)
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Err(); err != nil && err != goredis.Nil {
			l.log.Warn("Failed to release doc lock", "key", fullKey, "error", err)
		}
	}
	return release, nil
}
