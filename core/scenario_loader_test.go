package core

import (
	"math"
	"strings"
	"testing"
	"time"
)

const loaderScenario = `
name: test-station
station:
  lat_deg: 32.07
  lon_deg: 34.78
  alt_m: 50
chain:
  analyzer_noise_figure_db: 24
  antenna:
    name: "1.2m Ku"
    azimuth_deg: 203.5
    elevation_deg: 38.2
  omt:
    insertion_loss_db: 0.5
    noise_figure_db: 0.5
  lnb:
    gain_db: 55
    noise_figure_db: 0.8
    lo_frequency_hz: 10.75e9
    noise_temp_k: 60
  if_filter:
    insertion_loss_db: 1.0
    noise_figure_db: 1.0
  buc:
    gain_db: 30
    noise_figure_db: 8
    powered: false
fixed_sources:
  - id: geo-1
    azimuth_deg: 203.5
    elevation_deg: 38.2
    signals:
      - frequency_hz: 1.2e9
        bandwidth_hz: 10e6
        power_dbm: -70
        modulation: DVB-S2
        polarization: H
`

func TestLoadScenarioAssemblesChainAndSources(t *testing.T) {
	sc, err := LoadScenario(strings.NewReader(loaderScenario))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "test-station" {
		t.Fatalf("name = %q", sc.Name)
	}
	if sc.Station.LatDeg != 32.07 || sc.Station.AltM != 50 {
		t.Fatalf("station = %+v", sc.Station)
	}

	lnb := sc.Chain.LNB()
	if lnb == nil || lnb.GainDB == nil || *lnb.GainDB != 55 {
		t.Fatal("LNB gain not carried from the scenario")
	}
	if !lnb.IsPowered {
		t.Fatal("omitted powered field must default to true")
	}
	if buc := sc.Chain.StageByKind(StageBUC); buc == nil || buc.IsPowered {
		t.Fatal("explicit powered: false must stick")
	}
	if hpa := sc.Chain.StageByKind(StageHPA); hpa != nil {
		t.Fatal("absent HPA must stay nil")
	}

	// The loaded chain feeds the resolver directly.
	r := NewSignalPathResolver(sc.Chain)
	if got := r.GainTo(TapRxRFPostLNA); math.Abs(got-54.5) > 1e-9 {
		t.Fatalf("GainTo over loaded chain = %v, want 54.5", got)
	}

	if len(sc.SourceIDs) != 1 || sc.SourceIDs[0] != "geo-1" {
		t.Fatalf("source IDs = %v", sc.SourceIDs)
	}
	signals := sc.Env.SignalsAt(time.Now())
	if len(signals) != 1 {
		t.Fatalf("environment emits %d signals, want 1", len(signals))
	}
	sig := signals[0]
	if sig.ID != "geo-1-carrier-1" {
		t.Fatalf("auto-assigned carrier id = %q", sig.ID)
	}
	if sig.Polarization != PolarizationHorizontal || sig.Modulation != "DVB-S2" {
		t.Fatalf("signal = %+v", sig)
	}
}

func TestLoadScenarioRejectsBadEntries(t *testing.T) {
	cases := []string{
		"fixed_sources:\n  - azimuth_deg: 10\n",
		"satellites:\n  - id: sat-1\n",
		": not yaml",
	}
	for i, in := range cases {
		if _, err := LoadScenario(strings.NewReader(in)); err == nil {
			t.Fatalf("case %d: bad scenario accepted", i)
		}
	}
}
