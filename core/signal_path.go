package core

import "math"

// ThermalNoiseDensityDBmPerHz is kTB at 290 K expressed per hertz.
const ThermalNoiseDensityDBmPerHz = -174.0

// SignalPathResolver computes cascaded gain and noise floor at any tap
// point of a chain. It owns no equipment state; it borrows the chain's
// stages transiently per computation. All methods are total: a broken
// or absent chain yields -Inf, never an error.
type SignalPathResolver struct {
	chain *Chain
}

// NewSignalPathResolver wraps a chain. The host application constructs
// exactly one resolver per chain and passes it explicitly wherever the
// cascade numbers are needed.
func NewSignalPathResolver(chain *Chain) *SignalPathResolver {
	return &SignalPathResolver{chain: chain}
}

// GainTo walks the chain from the path source to the tap point, summing
// each traversed stage's (gain - insertion loss). The moment any
// traversed stage is unpowered or absent the result is -Inf: the path
// is fully broken, not merely attenuated.
func (r *SignalPathResolver) GainTo(tap TapPoint) float64 {
	r.chain.mu.RLock()
	defer r.chain.mu.RUnlock()
	return gainOverStages(r.chain.stagesTo(tap))
}

// NoiseFloorAt computes the noise floor at the tap point over the given
// bandwidth using cascade (Friis) noise combination: each stage's noise
// contribution is divided by the cumulative linear gain of all
// preceding stages, which is why the first low-noise amplifier
// dominates the system figure.
//
// The boolean tells the caller whether it must still add GainTo(tap)
// before display (true: the returned floor is input-referred) or
// whether the value already accounts for gain (false: the analyzer's
// own internal thermal floor won the comparison at RX_IF, and no
// further external gain is meaningful).
func (r *SignalPathResolver) NoiseFloorAt(tap TapPoint, bandwidthHz float64) (float64, bool) {
	if bandwidthHz <= 0 {
		bandwidthHz = 1
	}

	r.chain.mu.RLock()
	defer r.chain.mu.RUnlock()

	stages := r.chain.stagesTo(tap)
	gain := gainOverStages(stages)
	if math.IsInf(gain, -1) {
		// Broken chain: no signal and no noise, not "very quiet".
		return math.Inf(-1), true
	}

	external := thermalFloorDBm(bandwidthHz) + cascadeNoiseFigureDB(stages)

	if tap == TapRxIF {
		internal := thermalFloorDBm(bandwidthHz) + r.chain.analyzerNoiseFigureDB
		if internal >= external+gain {
			return internal, false
		}
	}
	return external, true
}

// cascadeNoiseFigureDB applies the Friis formula over the traversed
// stages: F = F1 + (F2-1)/G1 + (F3-1)/(G1*G2) + ... in linear terms.
// Callers must have established that every stage is powered.
func cascadeNoiseFigureDB(stages []*Stage) float64 {
	totalLin := 1.0
	cumulativeGainLin := 1.0
	for _, st := range stages {
		if st == nil {
			continue
		}
		fLin := dbToLinear(st.NoiseFigureDB)
		totalLin += (fLin - 1) / cumulativeGainLin
		cumulativeGainLin *= dbToLinear(st.NetGainDB())
	}
	return linearToDB(totalLin)
}

// gainOverStages sums net gain in traversal order, short-circuiting to
// -Inf on the first unpowered or absent stage.
func gainOverStages(stages []*Stage) float64 {
	total := 0.0
	for _, st := range stages {
		if st == nil || !st.IsPowered {
			return math.Inf(-1)
		}
		total += st.NetGainDB()
	}
	return total
}

func thermalFloorDBm(bandwidthHz float64) float64 {
	return ThermalNoiseDensityDBmPerHz + 10*math.Log10(bandwidthHz)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/10)
}

func linearToDB(lin float64) float64 {
	if lin <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(lin)
}

// addPowerDBm sums two powers expressed in dBm in the linear domain.
func addPowerDBm(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	return linearToDB(dbToLinear(a) + dbToLinear(b))
}
