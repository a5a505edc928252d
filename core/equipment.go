package core

import "sync"

// StageKind identifies a piece of front-end equipment in the chain.
type StageKind string

const (
	StageAntenna  StageKind = "antenna"
	StageOMT      StageKind = "omt"
	StageLNB      StageKind = "lnb"
	StageIFFilter StageKind = "if_filter"
	StageBUC      StageKind = "buc"
	StageHPA      StageKind = "hpa"
)

// Stage is the common shape shared by every piece of equipment in the
// analog chain. A nil GainDB marks a passive stage (no amplification,
// only insertion loss); an unpowered stage breaks the chain entirely
// rather than contributing a finite attenuation.
type Stage struct {
	Kind            StageKind `json:"kind"`
	Name            string    `json:"name"`
	IsPowered       bool      `json:"isPowered"`
	GainDB          *float64  `json:"gainDB,omitempty"`
	InsertionLossDB float64   `json:"insertionLossDB"`
	NoiseFigureDB   float64   `json:"noiseFigureDB"`
}

// NetGainDB returns the stage's gain minus insertion loss in dB.
// Powering is handled by the resolver, not here.
func (s *Stage) NetGainDB() float64 {
	gain := 0.0
	if s.GainDB != nil {
		gain = *s.GainDB
	}
	return gain - s.InsertionLossDB
}

// Antenna extends Stage with pointing state. Azimuth/elevation/skew are
// mirrored into the tracking state machine, which owns their lifecycle.
type Antenna struct {
	Stage

	AzimuthDeg   float64 `json:"azimuthDeg"`
	ElevationDeg float64 `json:"elevationDeg"`
	SkewDeg      float64 `json:"skewDeg"`
}

// LNB extends Stage with the block-downconverter parameters: local
// oscillator frequency and equivalent noise temperature.
type LNB struct {
	Stage

	LOFrequencyHz float64 `json:"loFrequencyHz"`
	NoiseTempK    float64 `json:"noiseTempK"`
}

// Chain is the full front-end assembly for one antenna: every stage of
// the receive and transmit paths plus the analyzer's own noise figure.
// The assembly exclusively owns its stages; the resolver and analyzer
// borrow them transiently per computation.
//
// The RWMutex makes the chain safe to mutate from control intents while
// server handlers read it, as long as all access goes through methods.
type Chain struct {
	mu sync.RWMutex

	antenna  *Antenna
	omt      *Stage
	lnb      *LNB
	ifFilter *Stage
	buc      *Stage
	hpa      *Stage

	// AnalyzerNoiseFigureDB is the spectrum analyzer's internal noise
	// figure, used for the thermal-floor comparison at RX_IF.
	analyzerNoiseFigureDB float64
}

// NewChain assembles a chain from its stages. Any stage may be nil,
// which the resolver treats the same as unpowered.
func NewChain(ant *Antenna, omt *Stage, lnb *LNB, ifFilter, buc, hpa *Stage, analyzerNF float64) *Chain {
	return &Chain{
		antenna:               ant,
		omt:                   omt,
		lnb:                   lnb,
		ifFilter:              ifFilter,
		buc:                   buc,
		hpa:                   hpa,
		analyzerNoiseFigureDB: analyzerNF,
	}
}

// DefaultChain builds a typical Ku-band ground-station chain: 1.2 m
// antenna, OMT with 0.5 dB loss, 55 dB LNB, IF filter, 30 dB BUC and
// 40 dB HPA, everything powered off except the passives.
func DefaultChain() *Chain {
	lnbGain := 55.0
	bucGain := 30.0
	hpaGain := 40.0
	return NewChain(
		&Antenna{
			Stage:        Stage{Kind: StageAntenna, Name: "1.2m Ku", IsPowered: true},
			AzimuthDeg:   180,
			ElevationDeg: 45,
		},
		&Stage{Kind: StageOMT, Name: "OMT", IsPowered: true, InsertionLossDB: 0.5, NoiseFigureDB: 0.5},
		&LNB{
			Stage:         Stage{Kind: StageLNB, Name: "LNB", GainDB: &lnbGain, NoiseFigureDB: 0.8},
			LOFrequencyHz: 10.75e9,
			NoiseTempK:    60,
		},
		&Stage{Kind: StageIFFilter, Name: "IF Filter", IsPowered: true, InsertionLossDB: 1.0, NoiseFigureDB: 1.0},
		&Stage{Kind: StageBUC, Name: "BUC", GainDB: &bucGain, NoiseFigureDB: 8},
		&Stage{Kind: StageHPA, Name: "HPA", GainDB: &hpaGain, NoiseFigureDB: 10},
		24.0,
	)
}

// Antenna returns the chain's antenna stage (may be nil).
func (c *Chain) Antenna() *Antenna {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.antenna
}

// StageByKind returns the plain stage of the given kind, or nil. The
// antenna and LNB variants have their own accessors.
func (c *Chain) StageByKind(kind StageKind) *Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch kind {
	case StageAntenna:
		if c.antenna == nil {
			return nil
		}
		return &c.antenna.Stage
	case StageOMT:
		return c.omt
	case StageLNB:
		if c.lnb == nil {
			return nil
		}
		return &c.lnb.Stage
	case StageIFFilter:
		return c.ifFilter
	case StageBUC:
		return c.buc
	case StageHPA:
		return c.hpa
	}
	return nil
}

// LNB returns the chain's LNB stage (may be nil).
func (c *Chain) LNB() *LNB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lnb
}

// SetPowered switches a stage on or off. Unknown kinds are ignored;
// absent stages cannot be powered.
func (c *Chain) SetPowered(kind StageKind, powered bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case StageAntenna:
		if c.antenna != nil {
			c.antenna.IsPowered = powered
		}
	case StageOMT:
		if c.omt != nil {
			c.omt.IsPowered = powered
		}
	case StageLNB:
		if c.lnb != nil {
			c.lnb.IsPowered = powered
		}
	case StageIFFilter:
		if c.ifFilter != nil {
			c.ifFilter.IsPowered = powered
		}
	case StageBUC:
		if c.buc != nil {
			c.buc.IsPowered = powered
		}
	case StageHPA:
		if c.hpa != nil {
			c.hpa.IsPowered = powered
		}
	}
}

// AnalyzerNoiseFigureDB returns the analyzer's internal noise figure.
func (c *Chain) AnalyzerNoiseFigureDB() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analyzerNoiseFigureDB
}

// stagesTo returns the stages traversed from the path source to the tap
// point, in traversal order. Nil entries stand for absent equipment and
// are treated as unpowered by the resolver.
//
// NOTE: caller must hold c.mu (read lock is enough).
func (c *Chain) stagesTo(tap TapPoint) []*Stage {
	antenna := (*Stage)(nil)
	if c.antenna != nil {
		antenna = &c.antenna.Stage
	}
	lnb := (*Stage)(nil)
	if c.lnb != nil {
		lnb = &c.lnb.Stage
	}

	switch tap {
	case TapRxRFPreOMT:
		return []*Stage{antenna}
	case TapRxRFPostOMT:
		return []*Stage{antenna, c.omt}
	case TapRxRFPostLNA:
		return []*Stage{antenna, c.omt, lnb}
	case TapRxIF:
		return []*Stage{antenna, c.omt, lnb, c.ifFilter}
	case TapTxIF:
		// The modulator output itself; nothing traversed yet.
		return nil
	case TapTxRFPostBUC:
		return []*Stage{c.buc}
	case TapTxRFPostHPA:
		return []*Stage{c.buc, c.hpa}
	case TapTxRFPostOMT:
		return []*Stage{c.buc, c.hpa, c.omt}
	}
	return nil
}
