package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/groundstation-simulator/core"
)

// StationCollector bundles Prometheus metrics for one simulated station
// and provides the HTTP handler and the per-tick recording hook.
type StationCollector struct {
	gatherer prometheus.Gatherer

	TickDuration *prometheus.HistogramVec
	HTTPRequests *prometheus.CounterVec

	NoiseFloorDBm  prometheus.Gauge
	LockState      prometheus.Gauge
	VisibleSignals prometheus.Gauge
	ActiveAlarms   prometheus.Gauge
	StreamClients  prometheus.Gauge
}

// NewStationCollector registers station Prometheus metrics against the
// provided registerer, defaulting to the global registry when nil.
func NewStationCollector(reg prometheus.Registerer) (*StationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	tickDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "station_tick_duration_seconds",
		Help:    "Wall time of one full simulation tick, labeled by phase.",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"phase"})
	tickDuration, err := registerHistogramVec(reg, tickDuration, "station_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "station_http_requests_total",
		Help: "Total handled control-surface HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"})
	httpRequests, err = registerCounterVec(reg, httpRequests, "station_http_requests_total")
	if err != nil {
		return nil, err
	}

	noiseFloor, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_noise_floor_dbm",
		Help: "Displayed analyzer noise floor at the primary tap, in dBm.",
	}), "station_noise_floor_dbm")
	if err != nil {
		return nil, err
	}
	lockState, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_tracking_lock_state",
		Help: "Antenna lock state: 0 manual, 1 acquiring, 2 locked, 3 failed.",
	}), "station_tracking_lock_state")
	if err != nil {
		return nil, err
	}
	visibleSignals, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_visible_signals",
		Help: "Carriers currently inside the pointing tolerance.",
	}), "station_visible_signals")
	if err != nil {
		return nil, err
	}
	activeAlarms, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_active_alarms",
		Help: "Alarms in the current worst-severity set; 0 when stable.",
	}), "station_active_alarms")
	if err != nil {
		return nil, err
	}
	streamClients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "station_stream_clients",
		Help: "Connected snapshot stream (websocket) clients.",
	}), "station_stream_clients")
	if err != nil {
		return nil, err
	}

	return &StationCollector{
		gatherer:       gatherer,
		TickDuration:   tickDuration,
		HTTPRequests:   httpRequests,
		NoiseFloorDBm:  noiseFloor,
		LockState:      lockState,
		VisibleSignals: visibleSignals,
		ActiveAlarms:   activeAlarms,
		StreamClients:  streamClients,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *StationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveTick records one engine tick: its wall-clock cost and the
// gauges derived from the resulting snapshot.
func (c *StationCollector) ObserveTick(snap core.AnalyzerSnapshot, visibleSignals int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.TickDuration != nil {
		c.TickDuration.WithLabelValues("engine").Observe(elapsed.Seconds())
	}
	if c.NoiseFloorDBm != nil && snap.BaselineFloorDBm != nil {
		c.NoiseFloorDBm.Set(*snap.BaselineFloorDBm)
	}
	if c.LockState != nil {
		c.LockState.Set(float64(lockStateValue(snap.Tracking.LockState)))
	}
	if c.VisibleSignals != nil {
		c.VisibleSignals.Set(float64(visibleSignals))
	}
	if c.ActiveAlarms != nil {
		c.ActiveAlarms.Set(float64(len(snap.Alarms.Alarms)))
	}
}

// ObserveHTTP records one control-surface request.
func (c *StationCollector) ObserveHTTP(route string, code int) {
	if c == nil || c.HTTPRequests == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%d", code)).Inc()
}

// SetStreamClients tracks websocket client churn from the hub.
func (c *StationCollector) SetStreamClients(n int) {
	if c == nil || c.StreamClients == nil {
		return
	}
	c.StreamClients.Set(float64(n))
}

func lockStateValue(state core.LockState) int {
	switch state {
	case core.LockAcquiring:
		return 1
	case core.LockLocked:
		return 2
	case core.LockFailed:
		return 3
	}
	return 0
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
