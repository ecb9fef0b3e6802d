package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/orders/:id", "404"))
	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/orders/:id", "404"))
	assert.Equal(t, 2.0, after-before)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bakery_orderflow_http_requests_total")
}

func TestRecordCounters(t *testing.T) {
	before := testutil.ToFloat64(orderOperations.WithLabelValues("create", "error"))
	RecordOrderOperation("create", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(orderOperations.WithLabelValues("create", "error"))-before)

	before = testutil.ToFloat64(notificationOutcomes.WithLabelValues("customer_email", "sent"))
	RecordNotification("customer_email", "sent")
	assert.Equal(t, 1.0, testutil.ToFloat64(notificationOutcomes.WithLabelValues("customer_email", "sent"))-before)
}
