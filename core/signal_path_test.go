package core

import (
	"math"
	"testing"
)

func testChain() *Chain {
	lnbGain := 55.0
	bucGain := 30.0
	hpaGain := 40.0
	return NewChain(
		&Antenna{
			Stage:        Stage{Kind: StageAntenna, Name: "1.2m", IsPowered: true},
			AzimuthDeg:   180,
			ElevationDeg: 45,
		},
		&Stage{Kind: StageOMT, IsPowered: true, InsertionLossDB: 0.5, NoiseFigureDB: 0.5},
		&LNB{
			Stage:         Stage{Kind: StageLNB, IsPowered: true, GainDB: &lnbGain, NoiseFigureDB: 0.8},
			LOFrequencyHz: 10.75e9,
			NoiseTempK:    60,
		},
		&Stage{Kind: StageIFFilter, IsPowered: true, InsertionLossDB: 1.0, NoiseFigureDB: 1.0},
		&Stage{Kind: StageBUC, IsPowered: true, GainDB: &bucGain, NoiseFigureDB: 8},
		&Stage{Kind: StageHPA, IsPowered: true, GainDB: &hpaGain, NoiseFigureDB: 10},
		24.0,
	)
}

func TestGainToSumsTraversedStages(t *testing.T) {
	r := NewSignalPathResolver(testChain())

	// Antenna (0) + OMT (-0.5) + LNB (+55).
	if got := r.GainTo(TapRxRFPostLNA); math.Abs(got-54.5) > 1e-9 {
		t.Fatalf("GainTo(RX_RF_POST_LNA) = %v, want 54.5", got)
	}

	// Adding the IF filter's 1 dB loss.
	if got := r.GainTo(TapRxIF); math.Abs(got-53.5) > 1e-9 {
		t.Fatalf("GainTo(RX_IF) = %v, want 53.5", got)
	}

	// TX side: BUC (+30) + HPA (+40) + OMT (-0.5).
	if got := r.GainTo(TapTxRFPostOMT); math.Abs(got-69.5) > 1e-9 {
		t.Fatalf("GainTo(TX_RF_POST_OMT) = %v, want 69.5", got)
	}

	// The modulator output itself has nothing in front of it.
	if got := r.GainTo(TapTxIF); got != 0 {
		t.Fatalf("GainTo(TX_IF) = %v, want 0", got)
	}
}

func TestGainToUnpoweredStageBreaksChain(t *testing.T) {
	chain := testChain()
	chain.SetPowered(StageOMT, false)
	r := NewSignalPathResolver(chain)

	if got := r.GainTo(TapRxRFPostLNA); !math.IsInf(got, -1) {
		t.Fatalf("GainTo with unpowered OMT = %v, want -Inf", got)
	}

	// The tap before the dead stage is unaffected.
	if got := r.GainTo(TapRxRFPreOMT); got != 0 {
		t.Fatalf("GainTo(RX_RF_PRE_OMT) = %v, want 0", got)
	}

	floor, apply := r.NoiseFloorAt(TapRxRFPostLNA, 10e6)
	if !math.IsInf(floor, -1) {
		t.Fatalf("noise floor with broken chain = %v, want -Inf", floor)
	}
	if !apply {
		t.Fatal("broken chain must report shouldApplyGain=true")
	}
}

func TestGainToAbsentStageTreatedAsUnpowered(t *testing.T) {
	chain := NewChain(nil, nil, nil, nil, nil, nil, 24)
	r := NewSignalPathResolver(chain)

	if got := r.GainTo(TapRxIF); !math.IsInf(got, -1) {
		t.Fatalf("GainTo over empty chain = %v, want -Inf", got)
	}
}

func TestNoiseFloorExternalCascadeWinsWithGain(t *testing.T) {
	r := NewSignalPathResolver(testChain())

	floor, apply := r.NoiseFloorAt(TapRxIF, 10e6)
	if !apply {
		t.Fatal("with a 53.5 dB front end the cascaded floor must win (shouldApplyGain=true)")
	}

	// Input-referred: -174 + 10log10(10 MHz) + cascade NF (~1.3 dB).
	if floor < -104 || floor > -101 {
		t.Fatalf("input-referred floor = %v, want about -102.7", floor)
	}
	if displayed := floor + r.GainTo(TapRxIF); displayed < -50 || displayed > -47 {
		t.Fatalf("displayed floor = %v, want about -49.2", displayed)
	}
}

func TestNoiseFloorInternalWinsWithoutGain(t *testing.T) {
	// All-passive receive path: no LNB gain, only losses. The
	// analyzer's own 24 dB figure dominates.
	chain := NewChain(
		&Antenna{Stage: Stage{Kind: StageAntenna, IsPowered: true}},
		&Stage{Kind: StageOMT, IsPowered: true, InsertionLossDB: 0.5, NoiseFigureDB: 0.5},
		&LNB{Stage: Stage{Kind: StageLNB, IsPowered: true, NoiseFigureDB: 0.8}},
		&Stage{Kind: StageIFFilter, IsPowered: true, InsertionLossDB: 1.0, NoiseFigureDB: 1.0},
		nil, nil,
		24.0,
	)
	r := NewSignalPathResolver(chain)

	floor, apply := r.NoiseFloorAt(TapRxIF, 10e6)
	if apply {
		t.Fatal("internal thermal floor should win: shouldApplyGain must be false")
	}

	want := ThermalNoiseDensityDBmPerHz + 70 + 24 // -80 dBm
	if math.Abs(floor-want) > 1e-9 {
		t.Fatalf("internal floor = %v, want %v", floor, want)
	}
}

func TestNoiseFloorOffIFPathNeverUsesInternalFloor(t *testing.T) {
	r := NewSignalPathResolver(testChain())

	// Only RX_IF compares against the analyzer's internal floor.
	_, apply := r.NoiseFloorAt(TapRxRFPostLNA, 10e6)
	if !apply {
		t.Fatal("non-IF taps always return the input-referred cascade floor")
	}
}
