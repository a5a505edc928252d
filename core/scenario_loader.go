package core

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Scenario is what a loaded scenario file yields: the assembled chain,
// the station location, and the signal environment. SourceIDs is a
// small summary useful for logging from main().
type Scenario struct {
	Name      string
	Station   StationLocation
	Chain     *Chain
	Env       *SignalEnvironment
	SourceIDs []string
}

// internal YAML shapes; kept unexported so the file format can evolve
// without touching the public types.
type scenarioYAML struct {
	Name    string      `yaml:"name"`
	Station stationYAML `yaml:"station"`
	Chain   chainYAML   `yaml:"chain"`

	Satellites   []satelliteYAML   `yaml:"satellites"`
	FixedSources []fixedSourceYAML `yaml:"fixed_sources"`
}

type stationYAML struct {
	LatDeg float64 `yaml:"lat_deg"`
	LonDeg float64 `yaml:"lon_deg"`
	AltM   float64 `yaml:"alt_m"`
}

type chainYAML struct {
	AnalyzerNoiseFigureDB float64 `yaml:"analyzer_noise_figure_db"`

	Antenna  *antennaYAML `yaml:"antenna"`
	OMT      *stageYAML   `yaml:"omt"`
	LNB      *lnbYAML     `yaml:"lnb"`
	IFFilter *stageYAML   `yaml:"if_filter"`
	BUC      *stageYAML   `yaml:"buc"`
	HPA      *stageYAML   `yaml:"hpa"`
}

type stageYAML struct {
	Name            string   `yaml:"name"`
	Powered         *bool    `yaml:"powered"` // optional; defaults to true
	GainDB          *float64 `yaml:"gain_db"`
	InsertionLossDB float64  `yaml:"insertion_loss_db"`
	NoiseFigureDB   float64  `yaml:"noise_figure_db"`
}

type antennaYAML struct {
	stageYAML    `yaml:",inline"`
	AzimuthDeg   float64 `yaml:"azimuth_deg"`
	ElevationDeg float64 `yaml:"elevation_deg"`
	SkewDeg      float64 `yaml:"skew_deg"`
}

type lnbYAML struct {
	stageYAML     `yaml:",inline"`
	LOFrequencyHz float64 `yaml:"lo_frequency_hz"`
	NoiseTempK    float64 `yaml:"noise_temp_k"`
}

type satelliteYAML struct {
	ID      string           `yaml:"id"`
	TLE1    string           `yaml:"tle1"`
	TLE2    string           `yaml:"tle2"`
	Signals []signalPlanYAML `yaml:"signals"`
}

type fixedSourceYAML struct {
	ID           string           `yaml:"id"`
	AzimuthDeg   float64          `yaml:"azimuth_deg"`
	ElevationDeg float64          `yaml:"elevation_deg"`
	Signals      []signalPlanYAML `yaml:"signals"`
}

type signalPlanYAML struct {
	ID           string  `yaml:"id"`
	FrequencyHz  float64 `yaml:"frequency_hz"`
	BandwidthHz  float64 `yaml:"bandwidth_hz"`
	PowerDBm     float64 `yaml:"power_dbm"`
	Modulation   string  `yaml:"modulation"`
	Polarization string  `yaml:"polarization"`
	ReferenceKm  float64 `yaml:"reference_km"`
}

// LoadScenario reads a YAML scenario from r and assembles the chain
// and signal environment. It fails on structural errors only; stage
// values are taken as written, since the resolver is total over them.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var payload scenarioYAML
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	station := StationLocation{
		LatDeg: payload.Station.LatDeg,
		LonDeg: payload.Station.LonDeg,
		AltM:   payload.Station.AltM,
	}

	chain := buildChain(payload.Chain)

	env := &SignalEnvironment{}
	var sourceIDs []string
	for _, sat := range payload.Satellites {
		if sat.ID == "" || sat.TLE1 == "" || sat.TLE2 == "" {
			return nil, fmt.Errorf("LoadScenario: satellite entry missing id or TLE")
		}
		env.Sources = append(env.Sources,
			NewSatelliteSource(sat.ID, station, sat.TLE1, sat.TLE2, plansFromYAML(sat.ID, sat.Signals)))
		sourceIDs = append(sourceIDs, sat.ID)
	}
	for _, src := range payload.FixedSources {
		if src.ID == "" {
			return nil, fmt.Errorf("LoadScenario: fixed source with empty id")
		}
		env.Sources = append(env.Sources, &FixedSource{
			ID:           src.ID,
			AzimuthDeg:   src.AzimuthDeg,
			ElevationDeg: src.ElevationDeg,
			Plans:        plansFromYAML(src.ID, src.Signals),
		})
		sourceIDs = append(sourceIDs, src.ID)
	}

	return &Scenario{
		Name:      payload.Name,
		Station:   station,
		Chain:     chain,
		Env:       env,
		SourceIDs: sourceIDs,
	}, nil
}

func buildChain(c chainYAML) *Chain {
	var ant *Antenna
	if c.Antenna != nil {
		ant = &Antenna{
			Stage:        stageFromYAML(StageAntenna, c.Antenna.stageYAML),
			AzimuthDeg:   c.Antenna.AzimuthDeg,
			ElevationDeg: c.Antenna.ElevationDeg,
			SkewDeg:      c.Antenna.SkewDeg,
		}
	}
	var lnb *LNB
	if c.LNB != nil {
		lnb = &LNB{
			Stage:         stageFromYAML(StageLNB, c.LNB.stageYAML),
			LOFrequencyHz: c.LNB.LOFrequencyHz,
			NoiseTempK:    c.LNB.NoiseTempK,
		}
	}

	analyzerNF := c.AnalyzerNoiseFigureDB
	if analyzerNF == 0 {
		analyzerNF = 24
	}

	return NewChain(
		ant,
		stagePtrFromYAML(StageOMT, c.OMT),
		lnb,
		stagePtrFromYAML(StageIFFilter, c.IFFilter),
		stagePtrFromYAML(StageBUC, c.BUC),
		stagePtrFromYAML(StageHPA, c.HPA),
		analyzerNF,
	)
}

func stageFromYAML(kind StageKind, s stageYAML) Stage {
	powered := true
	if s.Powered != nil {
		powered = *s.Powered
	}
	return Stage{
		Kind:            kind,
		Name:            s.Name,
		IsPowered:       powered,
		GainDB:          s.GainDB,
		InsertionLossDB: s.InsertionLossDB,
		NoiseFigureDB:   s.NoiseFigureDB,
	}
}

func stagePtrFromYAML(kind StageKind, s *stageYAML) *Stage {
	if s == nil {
		return nil
	}
	st := stageFromYAML(kind, *s)
	return &st
}

func plansFromYAML(sourceID string, signals []signalPlanYAML) []SignalPlan {
	plans := make([]SignalPlan, 0, len(signals))
	for i, sig := range signals {
		id := sig.ID
		if id == "" {
			id = fmt.Sprintf("%s-carrier-%d", sourceID, i+1)
		}
		plans = append(plans, SignalPlan{
			ID:           id,
			FrequencyHz:  sig.FrequencyHz,
			BandwidthHz:  sig.BandwidthHz,
			PowerDBm:     sig.PowerDBm,
			Modulation:   sig.Modulation,
			Polarization: Polarization(sig.Polarization),
			ReferenceKm:  sig.ReferenceKm,
		})
	}
	return plans
}
