package ratelimiter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"anoa.com/clubportal/pkg/apperror"
	"anoa.com/clubportal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	ScopeSubmit     = "submit"
	ScopeAttendance = "attendance"
	ScopeAdmin      = "admin_request"
)

type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many %s requests, retry in %s", e.Scope, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

// Limiter allows one action per user per window. Without redis the windows
// are tracked in process.
type Limiter struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

func New(rdb *redis.Client) *Limiter {
	return &Limiter{
		rdb:   rdb,
		local: make(map[string]time.Time),
		now:   time.Now,
	}
}

func key(userID, scope string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID, scope)
}

// Allow reports whether the user may act now and opens a new window if so.
// When denied, the remaining wait is returned.
func (l *Limiter) Allow(ctx context.Context, userID, scope string, window time.Duration) (bool, time.Duration, error) {
	if window <= 0 {
		return true, 0, nil
	}
	k := key(userID, scope)

	if l.rdb == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		now := l.now()
		if until, ok := l.local[k]; ok && now.Before(until) {
			return false, until.Sub(now), nil
		}
		l.local[k] = now.Add(window)
		return true, 0, nil
	}

	wasSet, err := l.rdb.SetNX(ctx, k, "locked", window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if wasSet {
		return true, 0, nil
	}
	ttl, err := l.rdb.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

func (l *Limiter) Clear(ctx context.Context, userID, scope string) error {
	k := key(userID, scope)
	if l.rdb == nil {
		l.mu.Lock()
		delete(l.local, k)
		l.mu.Unlock()
		return nil
	}
	return l.rdb.Del(ctx, k).Err()
}

// Middleware throttles the authenticated caller. A redis failure lets the
// request through.
func (l *Limiter) Middleware(scope string, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		allowed, retry, err := l.Allow(c.Request.Context(), userID, scope, window)
		if err != nil {
			logger.Warn("ratelimiter: %v", err)
			c.Next()
			return
		}
		if !allowed {
			limitErr := &RateLimitError{Scope: scope, RetryAfter: retry}
			c.Header("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       limitErr.Error(),
				"retry_after": int(retry.Round(time.Second).Seconds()),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
