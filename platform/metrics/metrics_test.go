package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	engine := gin.New()
	engine.Use(m.Middleware())
	engine.GET("/api/v1/leads/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/leads/abc", nil))
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/leads/:id", "200"))
	if got != 2 {
		t.Fatalf("expected 2 requests on route template, got %v", got)
	}
}

func TestNotificationResults(t *testing.T) {
	m := New()
	m.Notification("deal_created", nil)
	m.Notification("deal_created", errors.New("smtp down"))

	if testutil.ToFloat64(m.notifications.WithLabelValues("deal_created", "failed")) != 1 {
		t.Fatalf("expected one failed notification")
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.DealCreated()
	m.CallbacksProcessed(3)
	m.Notification("x", nil)
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.DealCreated()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "leadbridge_deals_created_total 1") {
		t.Fatalf("expected deals counter in output")
	}
}
