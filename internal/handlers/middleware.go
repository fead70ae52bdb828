package handlers

import (
	"net/http"

	"github.com/dpup/prefab/logging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RateLimitMiddleware applies a global token bucket of rps requests per second.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), rps)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware propagates the caller's X-Request-ID or assigns a new one, and scopes
// the request's logger to the path and id. Requests whose context carries no logger get a
// development logger.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		ctx := logging.EnsureLogger(c.Request.Context())
		logger := logging.FromContext(ctx).Named(c.Request.URL.Path).With(requestIDKey, id)
		c.Request = c.Request.WithContext(logging.With(ctx, logger))
		c.Next()
	}
}
