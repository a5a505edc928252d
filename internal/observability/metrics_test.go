package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/groundstation-simulator/core"
)

func tickSnapshot() core.AnalyzerSnapshot {
	floor := -49.2
	return core.AnalyzerSnapshot{
		BaselineFloorDBm: &floor,
		Tracking:         core.TrackingSnapshot{LockState: core.LockLocked},
		Alarms: core.AlarmState{
			Severity: core.SeverityWarning,
			Alarms:   []core.Alarm{{Severity: core.SeverityWarning, Message: "skew"}},
		},
	}
}

func TestObserveTickDrivesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewStationCollector(reg)
	if err != nil {
		t.Fatalf("NewStationCollector: %v", err)
	}

	collector.ObserveTick(tickSnapshot(), 2, 3*time.Millisecond)

	if got := testutil.ToFloat64(collector.NoiseFloorDBm); got != -49.2 {
		t.Fatalf("station_noise_floor_dbm = %v, want -49.2", got)
	}
	if got := testutil.ToFloat64(collector.LockState); got != 2 {
		t.Fatalf("station_tracking_lock_state = %v, want 2 (locked)", got)
	}
	if got := testutil.ToFloat64(collector.VisibleSignals); got != 2 {
		t.Fatalf("station_visible_signals = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.ActiveAlarms); got != 1 {
		t.Fatalf("station_active_alarms = %v, want 1", got)
	}
}

func TestObserveTickBrokenChainLeavesFloorGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewStationCollector(reg)
	if err != nil {
		t.Fatalf("NewStationCollector: %v", err)
	}

	snap := tickSnapshot()
	collector.ObserveTick(snap, 0, time.Millisecond)

	// A broken chain reports a nil floor; the gauge keeps its last
	// finite value instead of jumping to zero.
	snap.BaselineFloorDBm = nil
	collector.ObserveTick(snap, 0, time.Millisecond)

	if got := testutil.ToFloat64(collector.NoiseFloorDBm); got != -49.2 {
		t.Fatalf("station_noise_floor_dbm = %v, want the last finite -49.2", got)
	}
}

func TestMetricsHandlerExposesStationSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewStationCollector(reg)
	if err != nil {
		t.Fatalf("NewStationCollector: %v", err)
	}
	collector.ObserveTick(tickSnapshot(), 1, time.Millisecond)
	collector.ObserveHTTP("/api/v1/snapshot", 200)
	collector.SetStreamClients(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	body := rr.Body.String()
	for _, series := range []string{
		"station_tick_duration_seconds",
		"station_http_requests_total",
		"station_noise_floor_dbm",
		"station_tracking_lock_state",
		"station_stream_clients",
	} {
		if !strings.Contains(body, series) {
			t.Fatalf("/metrics output missing %s", series)
		}
	}
}

func TestCollectorsSurviveDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewStationCollector(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewStationCollector(reg); err != nil {
		t.Fatalf("second registration against the same registry: %v", err)
	}
}
