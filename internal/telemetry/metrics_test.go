package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit_Idempotent(t *testing.T) {
	Init()
	Init()
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/rules/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpReqs.WithLabelValues("/rules/{name}", http.MethodGet, http.StatusText(http.StatusTeapot)))

	req := httptest.NewRequest(http.MethodGet, "/rules/abc", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	after := testutil.ToFloat64(httpReqs.WithLabelValues("/rules/{name}", http.MethodGet, http.StatusText(http.StatusTeapot)))
	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestObserveServiceCall(t *testing.T) {
	c := serviceReqs.WithLabelValues("list", "ok")
	before := testutil.ToFloat64(c)
	ObserveServiceCall("list", "ok", 10*time.Millisecond)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("Expected 1 recorded call, got %v", got)
	}
}

func TestObserveVerdict(t *testing.T) {
	yes := evaluations.WithLabelValues("eligible")
	no := evaluations.WithLabelValues("not_eligible")
	y0, n0 := testutil.ToFloat64(yes), testutil.ToFloat64(no)

	ObserveVerdict(true)
	ObserveVerdict(false)
	ObserveVerdict(false)

	if got := testutil.ToFloat64(yes) - y0; got != 1 {
		t.Errorf("eligible: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(no) - n0; got != 2 {
		t.Errorf("not_eligible: got %v, want 2", got)
	}
}
