package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLimiterStore_BurstThenDeny(t *testing.T) {
	store := NewLimiterStore(1, 2, time.Hour)
	defer store.Stop()

	assert.True(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("1.2.3.4"))
	assert.False(t, store.Allow("1.2.3.4"))
	assert.True(t, store.Allow("5.6.7.8"), "keys are independent")
}

func TestLimiterStore_SweepForgetsIdleKeys(t *testing.T) {
	store := NewLimiterStore(60, 1, time.Hour)
	defer store.Stop()

	store.Allow("a")
	store.sweep(time.Now().Add(11 * time.Minute))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.clients)
}

func TestRateLimit_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewLimiterStore(1, 1, time.Hour)
	defer store.Stop()

	r := gin.New()
	r.POST("/login", RateLimit(store), func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "TOO_MANY_REQUESTS")
}
