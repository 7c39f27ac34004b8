package affinity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockKey is the redis key holding the rebuild lock
const DefaultLockKey = "toptag:affinity:rebuild_lock"

// releaseScript deletes the lock only if it is still held by the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock TTL only if it is still held by the caller's token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a Locker backed by a single redis key with a TTL.
// A holder renews the key every ttl/3 so the TTL only bounds how long a crashed
// holder blocks other rebuilds.
type RedisLocker struct {
	client     *redis.Client
	key        string
	ttl        time.Duration
	renewEvery time.Duration
}

// NewRedisLocker creates a redis-backed rebuild lock
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	renewEvery := ttl / 3
	if renewEvery <= 0 {
		renewEvery = ttl
	}
	return &RedisLocker{client: client, key: key, ttl: ttl, renewEvery: renewEvery}
}

// TryLock attempts to take the lock without waiting. The returned lease keeps the
// key alive until Release and reports through Lost when ownership goes away.
func (l *RedisLocker) TryLock(ctx context.Context) (Lease, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to set rebuild lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	lease := &redisLease{
		locker: l,
		token:  token,
		lost:   make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go lease.renew()
	return lease, true, nil
}

// Held reports whether any process currently holds the lock
func (l *RedisLocker) Held(ctx context.Context) (bool, error) {
	n, err := l.client.Exists(ctx, l.key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rebuild lock: %w", err)
	}
	return n > 0, nil
}

type redisLease struct {
	locker   *RedisLocker
	token    string
	lost     chan struct{}
	lostOnce sync.Once
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (r *redisLease) Lost() <-chan struct{} {
	return r.lost
}

// renew extends the key until released. A renewal that finds another token (or no
// key) marks the lease lost. Transient redis errors are retried until the TTL
// would have run out since the last successful renewal.
func (r *redisLease) renew() {
	defer close(r.done)
	ticker := time.NewTicker(r.locker.renewEvery)
	defer ticker.Stop()

	lastRenewed := time.Now()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.locker.renewEvery)
		n, err := renewScript.Run(ctx, r.locker.client, []string{r.locker.key},
			r.token, r.locker.ttl.Milliseconds()).Int()
		cancel()

		switch {
		case err == nil && n == 1:
			lastRenewed = time.Now()
		case err == nil:
			r.markLost()
			return
		case time.Since(lastRenewed) >= r.locker.ttl:
			r.markLost()
			return
		}
	}
}

func (r *redisLease) markLost() {
	r.lostOnce.Do(func() { close(r.lost) })
}

// Release stops renewal and deletes the key if this lease still owns it
func (r *redisLease) Release(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
	if err := releaseScript.Run(ctx, r.locker.client, []string{r.locker.key}, r.token).Err(); err != nil {
		return fmt.Errorf("failed to release rebuild lock: %w", err)
	}
	return nil
}
