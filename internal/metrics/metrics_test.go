package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"jewelpo/internal/metrics"
)

func TestObserveTransition(t *testing.T) {
	var nilMetrics *metrics.Metrics
	nilMetrics.ObserveTransition("place_order", "ok")

	m := metrics.New("jewelpo-test")
	m.ObserveTransition("place_order", "ok")
	m.ObserveTransition("place_order", "denied")
	m.ObserveTransition("place_order", "ok")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body := w.Body.String()

	want := `po_transitions_total{action="place_order",result="ok",service="jewelpo-test"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("missing %q in\n%s", want, body)
	}
	if !strings.Contains(body, `result="denied"`) {
		t.Error("denied outcome not exported")
	}
}
