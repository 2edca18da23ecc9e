package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/bonusledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("allows burst then blocks", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)
		defer rl.Stop()

		for i := 0; i < 3; i++ {
			ok, _ := rl.Allow("client")
			assert.True(t, ok, "request %d", i)
		}
		ok, wait := rl.Allow("client")
		assert.False(t, ok)
		assert.Greater(t, wait, time.Duration(0))
	})

	t.Run("separate buckets per key", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		defer rl.Stop()

		ok, _ := rl.Allow("a")
		assert.True(t, ok)
		ok, _ = rl.Allow("b")
		assert.True(t, ok)
		ok, _ = rl.Allow("a")
		assert.False(t, ok)
	})

	t.Run("burst defaults from rate", func(t *testing.T) {
		rl := NewRateLimiter(2.5, 0)
		defer rl.Stop()
		assert.Equal(t, 3, rl.Burst())
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		defer rl.Stop()

		rl.Allow("idle")
		rl.evictIdle(time.Now().Add(rl.idleTTL + time.Second))

		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.Empty(t, rl.clients)
	})

	t.Run("concurrent access", func(t *testing.T) {
		rl := NewRateLimiter(1, 50)
		defer rl.Stop()

		var allowed atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := rl.Allow("shared"); ok {
					allowed.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, allowed.Load(), int64(52))
		assert.GreaterOrEqual(t, allowed.Load(), int64(50))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.5, 2)
	defer rl.Stop()

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))

	w = do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeRateLimited)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
