package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type readiness struct{ err error }

func (r readiness) CheckReadiness(context.Context) error { return r.err }

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	m := NewTestMetrics()
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.Get("/explain/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/explain/1", "/explain/2", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/explain/{id}", "418")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/ok", "200")), 0)
}

func TestRoutePattern_Unmatched(t *testing.T) {
	assert.Equal(t, unmatchedRoute, routePattern(httptest.NewRequest(http.MethodGet, "/nope", nil)))
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		checkers []ReadinessChecker
		want     int
	}{
		{"no checkers", nil, http.StatusOK},
		{"all ready", []ReadinessChecker{readiness{}, readiness{}}, http.StatusOK},
		{"one failing", []ReadinessChecker{readiness{}, readiness{err: errors.New("no schema")}}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tt.checkers...)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
