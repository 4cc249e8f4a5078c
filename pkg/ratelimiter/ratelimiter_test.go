package ratelimiter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/clubportal/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestLocalWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	l := New(nil)
	l.now = func() time.Time { return now }

	ok, _, err := l.Allow(ctx, "u1", ScopeSubmit, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, retry, err := l.Allow(ctx, "u1", ScopeSubmit, 10*time.Second)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 10*time.Second, retry)

	// other users and scopes have their own windows
	ok, _, _ = l.Allow(ctx, "u2", ScopeSubmit, 10*time.Second)
	require.True(t, ok)
	ok, _, _ = l.Allow(ctx, "u1", ScopeAttendance, 10*time.Second)
	require.True(t, ok)

	now = now.Add(11 * time.Second)
	ok, _, _ = l.Allow(ctx, "u1", ScopeSubmit, 10*time.Second)
	require.True(t, ok)

	require.NoError(t, l.Clear(ctx, "u1", ScopeSubmit))
	ok, _, _ = l.Allow(ctx, "u1", ScopeSubmit, 10*time.Second)
	require.True(t, ok)

	ok, _, _ = l.Allow(ctx, "u1", ScopeAdmin, 0)
	require.True(t, ok)
	ok, _, _ = l.Allow(ctx, "u1", ScopeAdmin, 0)
	require.True(t, ok)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := New(nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-User"); uid != "" {
			c.Set("user_id", uid)
		}
	})
	r.POST("/submit", l.Middleware(ScopeSubmit, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(uid string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set("X-User", uid)
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusNoContent, do("u1").Code)
	w := do("u1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))
	require.Equal(t, http.StatusNoContent, do("u2").Code)

	// anonymous requests are not throttled here
	require.Equal(t, http.StatusNoContent, do("").Code)
	require.Equal(t, http.StatusNoContent, do("").Code)
}

func TestRateLimitErrorMapsTo429(t *testing.T) {
	err := &RateLimitError{Scope: ScopeSubmit, RetryAfter: 3 * time.Second}
	require.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))
	require.Equal(t, http.StatusTooManyRequests, apperror.MapErrorToStatus(err))
}
