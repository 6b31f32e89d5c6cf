// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is a no-op.
type Metrics struct {
	codesGenerated prometheus.Counter
	submissions    *prometheus.CounterVec
	codesPurged    prometheus.Counter
	emails         *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		codesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "codes_generated_total",
			Help:      "Attendance codes issued to teachers.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "submissions_total",
			Help:      "Attendance code redemptions by outcome.",
		}, []string{"outcome"}),
		codesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "codes_purged_total",
			Help:      "Attendance codes removed by the retention reaper.",
		}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attendance",
			Name:      "emails_total",
			Help:      "Notification emails by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "attendance",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.codesGenerated, m.submissions, m.codesPurged, m.emails, m.httpDuration)
	return m
}

// CodeGenerated counts one issued code.
func (m *Metrics) CodeGenerated() {
	if m == nil {
		return
	}
	m.codesGenerated.Inc()
}

// Submission counts one redemption attempt under outcome.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// CodesPurged adds n reaped codes.
func (m *Metrics) CodesPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.codesPurged.Add(float64(n))
}

// Email counts one delivery attempt under outcome.
func (m *Metrics) Email(outcome string) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(outcome).Inc()
}

// GinMiddleware observes request latency keyed by the matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
