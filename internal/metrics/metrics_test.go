package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CodeGenerated()
	m.CodeGenerated()
	m.Submission("ok")
	m.Submission("duplicate")
	m.Submission("ok")
	m.CodesPurged(3)
	m.CodesPurged(0)
	m.Email("sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.codesGenerated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("duplicate")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.codesPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("sent")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CodeGenerated()
	m.Submission("ok")
	m.CodesPurged(1)
	m.Email("failed")
}

func TestGinMiddlewareObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	require.Equal(t, http.StatusTeapot, w.Code)

	n, err := testutil.GatherAndCount(reg, "attendance_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
