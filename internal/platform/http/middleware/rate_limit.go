package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter は1リクエスト分の許可を判定する
type Limiter interface {
	Allow() (bool, time.Duration)
}

// RateLimit rejects requests with 429 and a Retry-After header once the limiter is exhausted.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := l.Allow()
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
