package core

import (
	"math"
	"testing"
)

func TestCascadeNoiseFigureFirstStageDominates(t *testing.T) {
	gLNA, gBUC, gHPA := 55.0, 30.0, 20.0
	lna := &Stage{Kind: StageLNB, IsPowered: true, GainDB: &gLNA, NoiseFigureDB: 0.8}
	buc := &Stage{Kind: StageBUC, IsPowered: true, GainDB: &gBUC, NoiseFigureDB: 8}
	hpa := &Stage{Kind: StageHPA, IsPowered: true, GainDB: &gHPA, NoiseFigureDB: 10}

	best := cascadeNoiseFigureDB([]*Stage{lna, buc, hpa})

	// Friis: the low-noise high-gain stage up front suppresses every
	// later stage's contribution. Any other ordering can only be worse.
	orders := [][]*Stage{
		{lna, hpa, buc},
		{buc, lna, hpa},
		{buc, hpa, lna},
		{hpa, lna, buc},
		{hpa, buc, lna},
	}
	for i, stages := range orders {
		if got := cascadeNoiseFigureDB(stages); got < best-1e-9 {
			t.Fatalf("ordering %d: NF %v beat LNA-first %v", i, got, best)
		}
	}

	// With 55 dB ahead of them the later stages barely move the figure.
	if best > 0.9 {
		t.Fatalf("cascade NF = %v, want within 0.1 dB of the LNA's 0.8", best)
	}
}

func TestCascadeNoiseFigurePassiveLossAddsDirectly(t *testing.T) {
	// A matched attenuator's noise figure equals its loss, so a lossy
	// passive in front of the amplifier adds its full loss to the
	// system figure.
	gLNA := 55.0
	omt := &Stage{Kind: StageOMT, IsPowered: true, InsertionLossDB: 0.5, NoiseFigureDB: 0.5}
	lna := &Stage{Kind: StageLNB, IsPowered: true, GainDB: &gLNA, NoiseFigureDB: 0.8}

	got := cascadeNoiseFigureDB([]*Stage{omt, lna})
	if math.Abs(got-1.3) > 0.05 {
		t.Fatalf("cascade NF = %v, want about 0.5 + 0.8 = 1.3", got)
	}

	alone := cascadeNoiseFigureDB([]*Stage{lna})
	if got <= alone {
		t.Fatalf("loss in front (%v) must degrade the figure beyond the LNA alone (%v)", got, alone)
	}
}
