package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
	"golang.org/x/time/rate"
)

// Limit describes one request budget. Name labels the metrics and namespaces Redis keys.
type Limit struct {
	Name  string
	RPS   float64
	Burst int
	// Window is the fixed window of the Redis limiter; the memory limiter refills continuously.
	Window time.Duration
}

func (l Limit) name() string {
	if l.Name == "" {
		return "default"
	}
	return l.Name
}

// perWindow is the number of requests a key may make in one Redis window.
func (l Limit) perWindow() int {
	return int(l.RPS*l.window().Seconds()) + l.Burst
}

func (l Limit) window() time.Duration {
	if l.Window < time.Second {
		return time.Second
	}
	return l.Window.Truncate(time.Second)
}

// buckets holds one token bucket per key.
type buckets struct {
	m     sync.Map // map[string]*rate.Limiter
	limit Limit
}

func (b *buckets) get(key string) *rate.Limiter {
	if v, ok := b.m.Load(key); ok {
		return v.(*rate.Limiter)
	}
	v, _ := b.m.LoadOrStore(key, rate.NewLimiter(rate.Limit(b.limit.RPS), b.limit.Burst))
	return v.(*rate.Limiter)
}

// RateLimitMiddleware enforces an in-memory token bucket per signed-in user, or per client IP
// for anonymous requests. Mount it after session.Middleware so the scope's user is known.
func RateLimitMiddleware(l Limit) gin.HandlerFunc {
	store := &buckets{limit: l}
	return func(c *gin.Context) {
		lim := store.get(limiterKey(c))
		if !lim.Allow() {
			retry := time.Second
			if l.RPS > 0 {
				retry = time.Duration(float64(time.Second) / l.RPS)
			}
			reject(c, l.name(), retry)
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(lim.Tokens())))
		metrics.RateLimitAllowed.WithLabelValues(l.name()).Inc()
		c.Next()
	}
}

func reject(c *gin.Context, name string, retry time.Duration) {
	secs := int((retry + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	metrics.RateLimitRejected.WithLabelValues(name).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
}
