package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.CacheLookup("hit")
	m.CacheLookup("hit")
	m.CacheLookup("miss")
	m.OriginFetch("http-tickers", 20*time.Millisecond, nil)
	m.OriginFetch("http-tickers", 20*time.Millisecond, errors.New("down"))
	m.QueuePublish("cache-saver-queue", nil)
	m.CachePopulation("stored")
	m.MailDelivery(errors.New("rejected"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.originFetches.WithLabelValues("http-tickers", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queuePublishes.WithLabelValues("cache-saver-queue", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.populations.WithLabelValues("stored")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mails.WithLabelValues("error")))
}

func TestMetrics_InstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/accounts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts/42", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/accounts/{id}", "418")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "btcinvest_http_requests_total"))
}
