package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.OrdersPlaced.Inc()
	prom.Metrics.ShortsOpened.Inc()
	prom.Metrics.ShortsOpened.Inc()
	prom.Metrics.FramesDropped.Inc()

	recorder := httptest.NewRecorder()
	prom.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := recorder.Body.String()

	for _, line := range []string{
		"bn_ladder_bot_orders_placed_total 1",
		"bn_ladder_bot_shorts_opened_total 2",
		"bn_ladder_bot_frames_dropped_total 1",
		"bn_ladder_bot_reconcile_runs_total 0",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in metrics output:\n%s", line, body)
		}
	}
}

func TestNoopMetricsAreSafe(t *testing.T) {
	m := NewNoop()
	m.OrdersPlaced.Inc()
	m.SellFills.Inc()
}
