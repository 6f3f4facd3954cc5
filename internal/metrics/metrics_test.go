package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	c := New()

	c.Recorded("productive", 1500)
	c.Recorded("productive", 500)
	c.Discarded(ReasonTooShort)
	c.Transition("tab_activated")
	c.Rollup(nil)
	c.Rollup(errors.New("boom"))

	if got := testutil.ToFloat64(c.RecordedMs.WithLabelValues("productive")); got != 2000 {
		t.Errorf("expected 2000ms recorded, got %v", got)
	}
	if got := testutil.ToFloat64(c.VisitsRecorded.WithLabelValues("productive")); got != 2 {
		t.Errorf("expected 2 visits, got %v", got)
	}
	if got := testutil.ToFloat64(c.VisitsDiscarded.WithLabelValues(ReasonTooShort)); got != 1 {
		t.Errorf("expected 1 discard, got %v", got)
	}
	if got := testutil.ToFloat64(c.Rollups.WithLabelValues("error")); got != 1 {
		t.Errorf("expected 1 failed rollup, got %v", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.Recorded("neutral", 10)
	c.Discarded(ReasonEmptyURL)
	c.Transition("shutdown")
	c.Rollup(nil)
	c.ClientConnected(1)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.Transition("focus_lost")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `sitetime_tracker_transitions_total{kind="focus_lost"} 1`) {
		t.Errorf("transition counter missing from exposition:\n%s", w.Body.String())
	}
}
