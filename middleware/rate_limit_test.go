package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func rateLimitedRouter(limiter *RateLimiter, identify gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := []gin.HandlerFunc{}
	if identify != nil {
		handlers = append(handlers, identify)
	}
	handlers = append(handlers, RateLimitMiddleware(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	router.POST("/deploy", handlers...)
	return router
}

func TestRateLimitMiddlewareEnforcesBurst(t *testing.T) {
	// A burst of 2 with no refill within the test window
	router := rateLimitedRouter(NewRateLimiter(rate.Every(time.Minute), 2), nil)

	codes := []int{}
	for i := 0; i < 3; i++ {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/deploy", nil))
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddlewareIsPerIdentifier(t *testing.T) {
	limiter := NewRateLimiter(rate.Every(time.Minute), 1)
	var user string
	router := rateLimitedRouter(limiter, func(c *gin.Context) {
		c.Set("userId", user)
	})

	user = "user-a"
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/deploy", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	exhausted := httptest.NewRecorder()
	router.ServeHTTP(exhausted, httptest.NewRequest(http.MethodPost, "/deploy", nil))
	assert.Equal(t, http.StatusTooManyRequests, exhausted.Code)

	// A different user has their own bucket
	user = "user-b"
	other := httptest.NewRecorder()
	router.ServeHTTP(other, httptest.NewRequest(http.MethodPost, "/deploy", nil))
	assert.Equal(t, http.StatusOK, other.Code)
}
