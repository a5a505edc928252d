package core

import (
	"math"
	"testing"
	"time"
)

func TestLookAnglesOverheadTarget(t *testing.T) {
	station := StationLocation{LatDeg: 0, LonDeg: 0, AltM: 0}

	// 500 km straight above the equatorial station.
	look := station.LookAnglesTo(wgs84A+500, 0, 0)
	if math.Abs(look.ElevationDeg-90) > 0.01 {
		t.Fatalf("elevation = %v, want 90 for an overhead target", look.ElevationDeg)
	}
	if math.Abs(look.RangeKm-500) > 0.1 {
		t.Fatalf("range = %v km, want 500", look.RangeKm)
	}
}

func TestLookAnglesNorthboundAzimuth(t *testing.T) {
	station := StationLocation{LatDeg: 0, LonDeg: 0, AltM: 0}

	// A high target slightly north of the station.
	lat := 2.0 * math.Pi / 180
	r := wgs84A + 800
	look := station.LookAnglesTo(r*math.Cos(lat), 0, r*math.Sin(lat))

	if look.AzimuthDeg > 1 && look.AzimuthDeg < 359 {
		t.Fatalf("azimuth = %v, want about 0 (north)", look.AzimuthDeg)
	}
	if look.ElevationDeg <= 0 || look.ElevationDeg >= 90 {
		t.Fatalf("elevation = %v, want between horizon and zenith", look.ElevationDeg)
	}
}

func TestFixedSourceEmitsPlansWithOrigin(t *testing.T) {
	src := &FixedSource{
		ID:           "geo-1",
		AzimuthDeg:   203.5,
		ElevationDeg: 38.2,
		Plans: []SignalPlan{
			{ID: "geo-1-carrier-1", FrequencyHz: 1.2e9, BandwidthHz: 10e6, PowerDBm: -70},
			{ID: "geo-1-carrier-2", FrequencyHz: 1.4e9, BandwidthHz: 5e6, PowerDBm: -80},
		},
	}

	signals := src.SignalsAt(time.Now())
	if len(signals) != 2 {
		t.Fatalf("emitted %d signals, want 2", len(signals))
	}
	for _, sig := range signals {
		if sig.Origin.SourceID != "geo-1" {
			t.Fatalf("origin source = %q, want geo-1", sig.Origin.SourceID)
		}
		if sig.Origin.AzimuthDeg != 203.5 || sig.Origin.ElevationDeg != 38.2 {
			t.Fatalf("origin = %+v, want the fixed direction", sig.Origin)
		}
	}
}

func TestSignalEnvironmentGathersAllSources(t *testing.T) {
	env := &SignalEnvironment{Sources: []SignalSource{
		&FixedSource{ID: "a", Plans: []SignalPlan{{ID: "a-1", FrequencyHz: 1e9}}},
		&FixedSource{ID: "b", Plans: []SignalPlan{{ID: "b-1", FrequencyHz: 2e9}, {ID: "b-2", FrequencyHz: 3e9}}},
	}}

	now := time.Now()
	first := env.SignalsAt(now)
	if len(first) != 3 {
		t.Fatalf("gathered %d signals, want 3", len(first))
	}

	// Fresh slice per call; mutating one tick's list must not leak.
	first[0].PowerDBm = 99
	second := env.SignalsAt(now)
	if second[0].PowerDBm == 99 {
		t.Fatal("environment reused the previous tick's slice")
	}
}

func TestSignalOverlaps(t *testing.T) {
	a := RfSignal{FrequencyHz: 1.2e9, BandwidthHz: 10e6}
	b := RfSignal{FrequencyHz: 1.208e9, BandwidthHz: 10e6}
	c := RfSignal{FrequencyHz: 1.3e9, BandwidthHz: 10e6}

	if !a.Overlaps(b) {
		t.Fatal("8 MHz apart with 10 MHz bandwidths must overlap")
	}
	if a.Overlaps(c) {
		t.Fatal("100 MHz apart must not overlap")
	}
}
