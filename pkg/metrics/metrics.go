// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lms"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

var (
	RateLimitAllowed  = counter("rate_limit_allowed_total", "Requests let through, by limiter.", "limiter")
	RateLimitRejected = counter("rate_limit_rejected_total", "Requests answered with 429, by limiter.", "limiter")

	// Reconciliations counts identity state changes: signed_in, created, signed_out, failed.
	Reconciliations = counter("session_reconciliations_total", "Identity state changes processed, by outcome.", "outcome")
	SignUps         = counter("signups_total", "Account registrations by outcome.", "outcome")
	BridgeOps       = counter("token_bridge_operations_total", "Session cookie operations by op and result.", "op", "result")

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed, RateLimitRejected, Reconciliations, SignUps, BridgeOps, RequestDuration)
}

// Instrument records RequestDuration labelled with the matched route template;
// unmatched requests share the "unmatched" route so ids never become labels.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
