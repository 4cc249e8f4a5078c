package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SubmitLock keeps one submission per (user, challenge) in flight across
// every instance sharing the redis.
type SubmitLock interface {
	// Acquire returns ok=false when someone else holds key.
	Acquire(ctx context.Context, key string) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if it still carries our token, so an
// expired lock taken over by another submit is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisSubmitLock struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSubmitLock falls back to an in-process lock when rdb is nil.
func NewSubmitLock(rdb *redis.Client, ttl time.Duration) SubmitLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if rdb == nil {
		return &localSubmitLock{held: make(map[string]struct{})}
	}
	return &redisSubmitLock{rdb: rdb, ttl: ttl}
}

func (l *redisSubmitLock) Acquire(ctx context.Context, key string) (func(), bool, error) {
	redisKey := fmt.Sprintf("submit_lock:%s", key)
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to take submit lock in redis: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Err()
	}
	return release, true, nil
}

type localSubmitLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func (l *localSubmitLock) Acquire(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, key)
		})
	}, true, nil
}
