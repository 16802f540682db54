package database

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lease only while the key still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes a key across engine instances with SET NX PX. The
// lease is renewed every TTL/3 while held, so TTL only bounds how long a
// crashed holder blocks others, not how long a critical section may run.
type RedisLocker struct {
	Redis   *redis.Client
	Prefix  string
	TTL     time.Duration
	Backoff time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		Redis:   rdb,
		Prefix:  "engine:lock:",
		TTL:     ttl,
		Backoff: 10 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	full := l.Prefix + key

	for {
		ok, err := l.Redis.SetNX(ctx, full, token, l.TTL).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "acquire lock %s", full)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.Backoff):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(full, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// 使用独立的 context，避免请求取消后锁无法释放
			releaseScript.Run(context.Background(), l.Redis, []string{full}, token)
		})
	}, nil
}

func (l *RedisLocker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.TTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := renewScript.Run(context.Background(), l.Redis, []string{key}, token, l.TTL.Milliseconds()).Int()
			if err != nil || n == 0 {
				// lease already gone
				return
			}
		}
	}
}
