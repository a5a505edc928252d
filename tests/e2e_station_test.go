package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-simulator/core"
	"github.com/signalsfoundry/groundstation-simulator/internal/server"
	"github.com/signalsfoundry/groundstation-simulator/timectrl"
)

// End-to-end: load a scenario, drive the engine off the time
// controller, and operate the station through the HTTP surface the way
// a console client would.

const stationScenario = `
name: e2e-bench
station:
  lat_deg: 0
  lon_deg: 0
  alt_m: 0
chain:
  analyzer_noise_figure_db: 24
  antenna:
    name: dish
    azimuth_deg: 180
    elevation_deg: 45
  omt:
    insertion_loss_db: 0.5
    noise_figure_db: 0.5
  lnb:
    gain_db: 55
    noise_figure_db: 0.8
  if_filter:
    insertion_loss_db: 1.0
    noise_figure_db: 1.0
  buc:
    gain_db: 30
    noise_figure_db: 8
  hpa:
    gain_db: 40
    noise_figure_db: 10
fixed_sources:
  - id: bench
    azimuth_deg: 180
    elevation_deg: 45
    signals:
      - id: bench-carrier
        frequency_hz: 1.22e9
        bandwidth_hz: 1.0e6
        power_dbm: -60
`

type stationEnv struct {
	scenario *core.Scenario
	engine   *core.SimulationEngine
	mu       sync.Mutex
	clock    *timectrl.TimeController
	srv      *server.Server
}

func newStationEnv(t *testing.T) *stationEnv {
	t.Helper()

	scenario, err := core.LoadScenario(strings.NewReader(stationScenario))
	if err != nil {
		t.Fatal(err)
	}

	analyzerCfg := core.DefaultAnalyzerConfig()
	analyzerCfg.JitterDB = 0

	env := &stationEnv{
		scenario: scenario,
		engine: core.NewSimulationEngine(
			scenario.Chain, analyzerCfg, core.DefaultTrackerConfig(), time.Second),
		clock: timectrl.NewTimeController(
			time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), time.Second, timectrl.Accelerated),
	}
	env.clock.AddListener(func(simTime time.Time) {
		signals := scenario.Env.SignalsAt(simTime)
		env.mu.Lock()
		env.engine.Tick(env.clock.Tick, signals)
		env.mu.Unlock()
	})

	env.srv = server.New(server.Options{
		Engine:   env.engine,
		Mu:       &env.mu,
		Clock:    env.clock,
		Signals:  func() []core.RfSignal { return scenario.Env.SignalsAt(env.clock.Now()) },
		Scenario: scenario.Name,
		Bind:     "127.0.0.1:0",
	})
	return env
}

func (env *stationEnv) run(t *testing.T, d time.Duration) {
	t.Helper()
	<-env.clock.Start(d)
}

func (env *stationEnv) get(t *testing.T, path string) map[string]any {
	t.Helper()
	rr := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s = %d: %s", path, rr.Code, rr.Body.String())
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return out
}

func (env *stationEnv) control(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/control", strings.NewReader(body))
	env.srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestStationAcquiresCarrierEndToEnd(t *testing.T) {
	env := newStationEnv(t)

	if rr := env.control(t, `{"action":"toggle_autotrack"}`); rr.Code != http.StatusOK {
		t.Fatalf("toggle_autotrack = %d: %s", rr.Code, rr.Body.String())
	}
	env.run(t, 3*time.Second)

	status := env.get(t, "/api/v1/status")
	if status["lock_state"] != "locked" {
		t.Fatalf("lock_state = %v, want locked", status["lock_state"])
	}
	if status["scenario"] != "e2e-bench" {
		t.Fatalf("scenario = %v", status["scenario"])
	}

	// Auto-tune should land the analyzer on the bench carrier.
	rr := env.control(t, `{"action":"auto_tune"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("auto_tune = %d: %s", rr.Code, rr.Body.String())
	}
	env.mu.Lock()
	center := env.engine.Analyzer().CenterFrequencyHz()
	env.mu.Unlock()
	if center != 1.22e9 {
		t.Fatalf("center after auto-tune = %v, want the carrier", center)
	}
}

func TestStationPowerFailureRaisesAlarmEndToEnd(t *testing.T) {
	env := newStationEnv(t)
	env.run(t, 2*time.Second)

	if rr := env.control(t, `{"action":"set_power","stage":"lnb","powered":false}`); rr.Code != http.StatusOK {
		t.Fatalf("set_power = %d: %s", rr.Code, rr.Body.String())
	}
	env.run(t, 2*time.Second)

	snap := env.get(t, "/api/v1/snapshot")
	alarms, _ := snap["alarms"].(map[string]any)
	if alarms == nil || alarms["stable"] == true {
		t.Fatalf("expected active alarms after LNB power loss, got %v", snap["alarms"])
	}
	if alarms["severity"] != "error" {
		t.Fatalf("severity = %v, want error", alarms["severity"])
	}
}
