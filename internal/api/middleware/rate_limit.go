package middleware

import (
	"fmt"
	"net/http"
	"time"

	"relay-service/internal/services"
	"relay-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type RateLimitMiddleware struct {
	redisService *services.RedisService
}

func NewRateLimitMiddleware(redisService *services.RedisService) *RateLimitMiddleware {
	return &RateLimitMiddleware{redisService: redisService}
}

// WebSocketRateLimit caps connection attempts per authenticated user.
// Runs after WSAuthMiddleware, which puts user_id in the context.
func (rm *RateLimitMiddleware) WebSocketRateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Reject(response.CodeNoToken, ""))
			return
		}

		key := fmt.Sprintf("rate_limit:websocket:%s", userID)
		allowed, err := rm.redisService.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			// Rate limiting is best-effort; an unreachable limiter must
			// not take the relay down.
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{
				Error: "connection rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// RateLimitIP caps requests per client IP on public routes.
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.Request.URL.Path)
		allowed, err := rm.redisService.CheckRateLimit(c.Request.Context(), key, requests, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{
				Error:   "rate limit exceeded",
				Details: fmt.Sprintf("limit: %d per %v", requests, window),
			})
			return
		}

		c.Next()
	}
}
