package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/pkg/logger"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware is a fixed-window limiter shared by all replicas. Each window
// counts requests under rl:<name>:<key>:<window> and allows Limit.perWindow of them.
// When Redis cannot be reached the request is let through and counted as "<name>_unchecked".
func RedisRateLimitMiddleware(client *redis.Client, l Limit) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(l)
	}
	win := l.window()
	allowed := l.perWindow()
	return func(c *gin.Context) {
		now := time.Now()
		bucket := now.Unix() / int64(win.Seconds())
		key := fmt.Sprintf("rl:%s:%s:%d", l.name(), limiterKey(c), bucket)

		var incr *redis.IntCmd
		_, err := client.TxPipelined(c.Request.Context(), func(p redis.Pipeliner) error {
			incr = p.Incr(c.Request.Context(), key)
			p.Expire(c.Request.Context(), key, win+time.Second)
			return nil
		})
		if err != nil {
			logger.Warnf("rate limit: redis unavailable, allowing request: %v", err)
			metrics.RateLimitAllowed.WithLabelValues(l.name() + "_unchecked").Inc()
			c.Next()
			return
		}
		cnt := int(incr.Val())
		if cnt > allowed {
			reset := time.Unix((bucket+1)*int64(win.Seconds()), 0)
			reject(c, l.name(), reset.Sub(now))
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(allowed-cnt))
		metrics.RateLimitAllowed.WithLabelValues(l.name()).Inc()
		c.Next()
	}
}
