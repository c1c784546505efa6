package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmsplatform/lms/backend/go-services/internal/profiles"
	"github.com/lmsplatform/lms/backend/go-services/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedEngine(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/courses", h, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/courses", nil))
	return w
}

func TestRateLimitMiddleware_BurstThenReject(t *testing.T) {
	r := limitedEngine(RateLimitMiddleware(Limit{Name: "catalog-burst", RPS: 0.5, Burst: 2}))

	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusOK, hit(r).Code)
	w := hit(r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	// one token every two seconds
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RateLimitAllowed.WithLabelValues("catalog-burst")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("catalog-burst")))
}

func TestRateLimitMiddleware_Refills(t *testing.T) {
	r := limitedEngine(RateLimitMiddleware(Limit{Name: "refill", RPS: 5, Burst: 1}))

	require.Equal(t, http.StatusOK, hit(r).Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r).Code)

	// 5 rps refills a token in 200ms
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, http.StatusOK, hit(r).Code)
}

func TestRateLimitMiddleware_UsesSubjectWhenPresent(t *testing.T) {
	g := scopedEngine(t, profiles.NewMemoryStore())
	cookie, _ := signUp(t, g, "rl@example.com")
	other, _ := signUp(t, g, "rl2@example.com")
	g.GET("/u", RateLimitMiddleware(Limit{Name: "subject", RPS: 0.5, Burst: 1}), func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	require.Equal(t, http.StatusOK, get(g, "/u", cookie).Code)
	require.Equal(t, http.StatusTooManyRequests, get(g, "/u", cookie).Code)
	// each user and the anonymous caller have their own bucket
	require.Equal(t, http.StatusOK, get(g, "/u", other).Code)
	require.Equal(t, http.StatusOK, get(g, "/u", nil).Code)
}
