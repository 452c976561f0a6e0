package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sadwiik06/SocialFlow/internal/auth"
	"github.com/sadwiik06/SocialFlow/internal/logger"
	"github.com/sadwiik06/SocialFlow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = logger.Initialize("error", "")
	os.Exit(m.Run())
}

func get(router *gin.Engine, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
}

func TestRateLimiter(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(RateLimitConfig{Limit: 3, Window: time.Second}))
	router.GET("/test", whoami)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "/test", nil).Code, "request %d", i+1)
	}

	w := get(router, "/test", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, http.StatusOK, get(router, "/test", nil).Code)
}

func TestRateLimiterKeyFunc(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(RateLimitConfig{
		Limit:   1,
		Window:  time.Minute,
		KeyFunc: func(c *gin.Context) string { return c.GetHeader("X-Client") },
	}))
	router.GET("/test", whoami)

	a := http.Header{"X-Client": {"a"}}
	b := http.Header{"X-Client": {"b"}}
	assert.Equal(t, http.StatusOK, get(router, "/test", a).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/test", a).Code)
	assert.Equal(t, http.StatusOK, get(router, "/test", b).Code)
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Limit: 100, Window: 10 * time.Millisecond})
	ok, _ := rl.Allow("a")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rl.Sweep())
	assert.Equal(t, 0, rl.Sweep())
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), GinLoggerMiddleware(), MetricsMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := get(router, "/test", nil)
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	require.NoError(t, err)
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	w = get(router, "/test", http.Header{"X-Request-Id": {"given"}})
	assert.Equal(t, "given", w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	svc := auth.NewService(nil, []byte("secret"), time.Hour)
	token, _, err := svc.IssueToken(&models.User{ID: "u1", Username: "alice"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", AuthMiddleware(svc), whoami)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", http.Header{"Authorization": {token}}).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", http.Header{"Authorization": {"Bearer junk"}}).Code)

	w := get(router, "/me", http.Header{"Authorization": {"Bearer " + token}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u1"}`, w.Body.String())
}

func TestHeaderAuth(t *testing.T) {
	router := gin.New()
	router.GET("/me", HeaderAuth(), whoami)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", nil).Code)
	w := get(router, "/me", http.Header{"X-User-Id": {"u2"}})
	assert.JSONEq(t, `{"user_id":"u2"}`, w.Body.String())
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(TracingMiddleware("socialflow-test"))
	router.GET("/test", whoami)
	assert.Equal(t, http.StatusOK, get(router, "/test?page=1", nil).Code)
}

func TestRedisRateLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	rl := NewRedisRateLimiter(client, uuid.NewString(), RateLimitConfig{Limit: 2, Window: time.Minute})
	router := gin.New()
	router.Use(rl.Middleware())
	router.GET("/test", whoami)

	assert.Equal(t, http.StatusOK, get(router, "/test", nil).Code)
	assert.Equal(t, http.StatusOK, get(router, "/test", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(router, "/test", nil).Code)
}
