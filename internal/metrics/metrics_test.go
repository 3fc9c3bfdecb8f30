package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpload("ok", time.Second)
	m.ObserveVariant("jpg", "ok")
	m.SetQueueDepth(3)
	m.ObserveCache("sitemap", true)

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveUpload("ok", 2*time.Second)
	m.ObserveUpload("rejected", 0)
	m.ObserveVariant("avif", "encode_error")
	m.ObserveVariant("jpg", "ok")
	m.ObserveVariant("jpg", "ok")
	m.SetQueueDepth(4)
	m.ObserveCache("dashboard_stats", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Uploads.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Variants.WithLabelValues("jpg", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Variants.WithLabelValues("avif", "encode_error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("dashboard_stats", "miss")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Delete("/seo-images/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/seo-images/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("DELETE", "/seo-images/{id}", "204")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seo_images_http_requests_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
