package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

var ErrLockNotAcquired = errors.New(errors.ErrCodeConflict, "another operation on this task is in progress")

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(c *lockConfig) { c.retryDelay = delay }
}

func WithRetryCount(count int) LockOption {
	return func(c *lockConfig) { c.retryCount = count }
}

type lockConfig struct {
	ttl        time.Duration
	retryDelay time.Duration
	retryCount int
}

// Locker hands out short-lived mutexes keyed by name.  A lock expires after
// its TTL even if the holder never releases it.
type Locker struct {
	client *Client
	log    logging.Logger
	prefix string
	cfg    lockConfig
}

func NewLocker(client *Client, log logging.Logger, opts ...LockOption) *Locker {
	cfg := lockConfig{
		ttl:        10 * time.Second,
		retryDelay: 50 * time.Millisecond,
		retryCount: 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Locker{
		client: client,
		log:    log,
		prefix: "taskboard:lock:",
		cfg:    cfg,
	}
}

// Deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Acquire blocks until the named lock is free, the retries run out or ctx is
// done.  The returned release func is safe to call more than once.
func (l *Locker) Acquire(ctx context.Context, name string) (func(), error) {
	key := l.prefix + name
	token := uuid.NewString()

	for attempt := 0; ; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire lock")
		}
		if ok {
			break
		}
		if attempt >= l.cfg.retryCount {
			return nil, ErrLockNotAcquired.WithDetail("lock=" + name)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.retryDelay):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// The caller's ctx may already be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(rctx, l.client.GetUnderlyingClient(), []string{key}, token).Err(); err != nil {
			l.log.Warn("release lock failed", logging.String("lock", name), logging.Err(err))
		}
	}, nil
}

//Personal.AI order the ending
