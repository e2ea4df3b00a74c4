package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jcondon11/lilibet-backend/internal/clients/redis"
	"github.com/jcondon11/lilibet-backend/internal/pkg/ctxutil"
	"github.com/jcondon11/lilibet-backend/internal/pkg/logger"
)

type RateLimitMiddleware struct {
	log     *logger.Logger
	limiter redis.Limiter
}

func NewRateLimitMiddleware(log *logger.Logger, limiter redis.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{log: log.With("middleware", "RateLimitMiddleware"), limiter: limiter}
}

// Limit applies a per-user budget to expensive endpoints. Runs after
// RequireAuth so the key is the authenticated user, not the IP. Fails open
// when redis is unreachable; provider calls are metered upstream anyway.
func (rl *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.limiter == nil {
			c.Next()
			return
		}
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || rd.UserID == uuid.Nil {
			c.Next()
			return
		}

		allow, retryAfter, err := rl.limiter.Allow(c.Request.Context(), rd.UserID.String())
		if err != nil {
			rl.log.Warn("Rate limiter unavailable; allowing request", "error", err)
			c.Next()
			return
		}
		if !allow {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "too many requests", "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}
