package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCache(t *testing.T) {
	before := testutil.ToFloat64(CacheLookups.WithLabelValues("services", "hit"))
	ObserveCache("services", true)
	ObserveCache("services", false)

	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("services", "hit")); got != before+1 {
		t.Errorf("Expected %v hits, got %v", before+1, got)
	}
}

func TestObserveResolution(t *testing.T) {
	before := testutil.ToFloat64(Resolutions.WithLabelValues("derived"))
	ObserveResolution("derived", time.Now())
	if got := testutil.ToFloat64(Resolutions.WithLabelValues("derived")); got != before+1 {
		t.Errorf("Expected counter to increase by 1, got %v -> %v", before, got)
	}
}

func TestObserveFilterRejection(t *testing.T) {
	ObserveFilterRejection("related", true)
	if got := testutil.ToFloat64(FilterRejections.WithLabelValues("related", "strict")); got < 1 {
		t.Errorf("Expected strict rejection recorded, got %v", got)
	}
}

func TestHandler(t *testing.T) {
	ObserveCache("authors", false)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "newsblog_facet_cache_lookups_total") {
		t.Error("Expected cache metric in exposition")
	}
}

func TestObserveBreaker(t *testing.T) {
	before := testutil.ToFloat64(CacheBreakerTransitions.WithLabelValues("closed", "open"))
	ObserveBreaker("closed", "open")
	if got := testutil.ToFloat64(CacheBreakerTransitions.WithLabelValues("closed", "open")); got != before+1 {
		t.Errorf("Expected %v transitions, got %v", before+1, got)
	}
}
