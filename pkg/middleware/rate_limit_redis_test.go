package middleware

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimit_SharedAcrossReplicas(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	// a long window keeps the test clear of a bucket boundary
	l := Limit{Name: "shared", RPS: 0, Burst: 2, Window: time.Hour}
	a := limitedEngine(RedisRateLimitMiddleware(client, l))
	b := limitedEngine(RedisRateLimitMiddleware(client, l))

	w := hit(a)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, http.StatusOK, hit(b).Code)

	w = hit(a)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retry >= 1 && retry <= 3600)

	bucket := time.Now().Unix() / 3600
	key := "rl:shared:ip:192.0.2.1:" + strconv.FormatInt(bucket, 10)
	assert.True(t, m.Exists(key), "keys: %v", m.Keys())
	assert.True(t, m.TTL(key) > 0)
}

func TestRedisRateLimit_WindowExpires(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer client.Close()

	r := limitedEngine(RedisRateLimitMiddleware(client, Limit{Name: "expiry", RPS: 0, Burst: 1, Window: time.Hour}))
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r).Code)

	// dropping the counter (as its TTL would) reopens the budget
	m.FlushAll()
	require.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	defer client.Close()
	m.Close()

	r := limitedEngine(RedisRateLimitMiddleware(client, Limit{Name: "down", Burst: 1, Window: time.Second}))
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusOK, hit(r).Code)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("down_unchecked")))
}

func TestRedisRateLimit_NilClientFallsBackToMemory(t *testing.T) {
	r := limitedEngine(RedisRateLimitMiddleware(nil, Limit{Name: "nil-client", RPS: 0.1, Burst: 1}))
	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r).Code)
}
