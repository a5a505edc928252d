package core

import (
	"fmt"
	"time"
)

// SimulationEngine ties the chain, resolver, analyzer, tracker and
// alarm aggregator into one tick-driven unit. All recomputation happens
// inside Tick in a fixed order (resolve paths, analyzer, tracking,
// alarms) because later stages read the outputs of earlier ones within
// the same tick. There are no internal threads and no event bus; the
// tick returns a complete snapshot instead.
type SimulationEngine struct {
	chain    *Chain
	resolver *SignalPathResolver
	analyzer *Analyzer
	tracker  *Tracker
	alarms   *AlarmAggregator

	tickListeners []func(AnalyzerSnapshot)
}

// NewSimulationEngine wires the components for one simulated antenna.
// The caller owns the chain; the engine constructs the rest and passes
// references explicitly.
func NewSimulationEngine(chain *Chain, analyzerCfg AnalyzerConfig, trackerCfg TrackerConfig, alarmInterval time.Duration) *SimulationEngine {
	resolver := NewSignalPathResolver(chain)
	analyzer := NewAnalyzer(resolver, analyzerCfg)

	az, el := 180.0, 45.0
	if ant := chain.Antenna(); ant != nil {
		az, el = ant.AzimuthDeg, ant.ElevationDeg
	}
	tracker := NewTracker(trackerCfg, az, el)

	engine := &SimulationEngine{
		chain:    chain,
		resolver: resolver,
		analyzer: analyzer,
		tracker:  tracker,
	}
	engine.alarms = NewAlarmAggregator(alarmInterval,
		&chainAlarmSource{chain: chain, tracker: tracker},
		&trackerAlarmSource{tracker: tracker},
		&analyzerAlarmSource{analyzer: analyzer},
	)
	return engine
}

// Chain exposes the equipment assembly for control intents.
func (se *SimulationEngine) Chain() *Chain { return se.chain }

// Resolver exposes the read-only signal path computations.
func (se *SimulationEngine) Resolver() *SignalPathResolver { return se.resolver }

// Analyzer exposes the spectrum analyzer state machine.
func (se *SimulationEngine) Analyzer() *Analyzer { return se.analyzer }

// Tracker exposes the antenna tracking state machine.
func (se *SimulationEngine) Tracker() *Tracker { return se.tracker }

// RegisterTickListener adds a callback invoked with every snapshot.
func (se *SimulationEngine) RegisterTickListener(fn func(AnalyzerSnapshot)) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Tick performs one complete simulation pass over the tick's active
// signal list and returns the snapshot consumed by rendering and sync.
func (se *SimulationEngine) Tick(dt time.Duration, activeSignals []RfSignal) AnalyzerSnapshot {
	visible := se.tracker.VisibleSignals(activeSignals)
	se.analyzer.Tick(visible)
	se.tracker.Tick(dt, activeSignals)
	alarmState, alarmChanged := se.alarms.Tick(dt)

	snap := se.Snapshot()
	snap.Alarms = alarmState
	snap.AlarmChanged = alarmChanged

	for _, fn := range se.tickListeners {
		fn(snap)
	}
	return snap
}

// Snapshot assembles the current state without advancing anything.
func (se *SimulationEngine) Snapshot() AnalyzerSnapshot {
	a := se.analyzer
	snap := AnalyzerSnapshot{
		TickIndex:         a.tickIndex,
		CenterFrequencyHz: a.centerHz,
		SpanHz:            a.spanHz,
		ReferenceLevelDBm: a.refLevel,
		MinAmplitudeDBm:   a.minAmpDBm,
		MaxAmplitudeDBm:   a.maxAmpDBm,
		RBWHz:             a.EffectiveRBWHz(),
		RBWAuto:           a.RBWIsAuto(),
		ScreenMode:        a.screenMode,
		LockedControl:     a.locked,
		MarkersEnabled:    a.markersEnabled,
		MarkerIndex:       a.markerIndex,
		Markers:           append([]Marker(nil), a.markers...),
		BaselineFloorDBm:  finiteOrNil(a.BaselineFloorDisplayedDBm()),
		Alarms:            se.alarms.Current(),
	}
	for i, tr := range a.traces {
		snap.Traces[i] = *tr
		snap.Traces[i].Bins = append([]float64(nil), tr.Bins...)
	}

	for tp := TapRxRFPreOMT; tp <= TapTxRFPostOMT; tp++ {
		floor, apply := se.resolver.NoiseFloorAt(tp, a.EffectiveRBWHz())
		snap.Taps = append(snap.Taps, TapReading{
			Tap:             tp,
			GainDB:          finiteOrNil(se.resolver.GainTo(tp)),
			NoiseFloorDBm:   finiteOrNil(floor),
			ShouldApplyGain: apply,
		})
	}

	t := se.tracker
	snap.Tracking = TrackingSnapshot{
		AzimuthDeg:     t.azimuthDeg,
		ElevationDeg:   t.elevationDeg,
		SkewDeg:        t.skewDeg,
		SkewWarning:    t.SkewWarning(),
		IsAutoTrack:    t.autoTrack,
		LockState:      t.state,
		LockedSourceID: t.lockedSourceID,
		Loopback:       t.loopback,
	}
	return snap
}

// Restore rehydrates engine state from a snapshot so a deserialized
// session re-ticks identically. Equipment state is not part of the
// snapshot; the chain is expected to match the recording.
func (se *SimulationEngine) Restore(snap AnalyzerSnapshot) error {
	if snap.SpanHz < MinSpanHz {
		return fmt.Errorf("restore: invalid span %g", snap.SpanHz)
	}
	a := se.analyzer
	a.tickIndex = snap.TickIndex
	a.centerHz = snap.CenterFrequencyHz
	a.spanHz = snap.SpanHz
	a.refLevel = snap.ReferenceLevelDBm
	a.minAmpDBm = snap.MinAmplitudeDBm
	a.maxAmpDBm = snap.MaxAmplitudeDBm
	if snap.RBWAuto {
		a.rbwHz = 0
	} else {
		a.rbwHz = snap.RBWHz
	}
	a.screenMode = snap.ScreenMode
	a.locked = snap.LockedControl
	a.markers = append([]Marker(nil), snap.Markers...)
	a.markersEnabled = snap.MarkersEnabled
	a.markerIndex = snap.MarkerIndex
	for i := range a.traces {
		restored := snap.Traces[i]
		restored.Bins = append([]float64(nil), snap.Traces[i].Bins...)
		*a.traces[i] = restored
	}

	t := se.tracker
	t.azimuthDeg = snap.Tracking.AzimuthDeg
	t.elevationDeg = snap.Tracking.ElevationDeg
	t.skewDeg = snap.Tracking.SkewDeg
	t.autoTrack = snap.Tracking.IsAutoTrack
	t.state = snap.Tracking.LockState
	t.lockedSourceID = snap.Tracking.LockedSourceID
	t.loopback = snap.Tracking.Loopback
	return nil
}

//
// ---------- Alarm sources ----------
//

// chainAlarmSource reports broken-path conditions. A fully powered-off
// station is "off", not alarming; a partially powered chain with a dead
// stage in the middle is an error. TX-side conditions are suppressed
// while loopback is engaged, since loopback bypasses real transmission.
type chainAlarmSource struct {
	chain   *Chain
	tracker *Tracker
}

func (s *chainAlarmSource) Alarms() []Alarm {
	rxKinds := []StageKind{StageAntenna, StageOMT, StageLNB, StageIFFilter}
	txKinds := []StageKind{StageBUC, StageHPA, StageOMT}

	anyOn := false
	for _, kind := range append(append([]StageKind(nil), rxKinds...), txKinds...) {
		if st := s.chain.StageByKind(kind); st != nil && st.IsPowered {
			anyOn = true
			break
		}
	}
	if !anyOn {
		return nil
	}

	var alarms []Alarm
	for i, kind := range rxKinds {
		st := s.chain.StageByKind(kind)
		if st == nil || !st.IsPowered {
			alarms = append(alarms, Alarm{
				Severity:       SeverityError,
				Message:        fmt.Sprintf("receive chain broken: %s unpowered", kind),
				AssetID:        "chain",
				EquipmentType:  string(kind),
				EquipmentIndex: i,
			})
		}
	}
	if s.tracker != nil && s.tracker.Loopback() {
		// Loopback is mutually exclusive with transmission awareness.
		return alarms
	}
	for i, kind := range txKinds {
		st := s.chain.StageByKind(kind)
		if st == nil || !st.IsPowered {
			alarms = append(alarms, Alarm{
				Severity:       SeverityWarning,
				Message:        fmt.Sprintf("transmit unavailable: %s unpowered", kind),
				AssetID:        "chain",
				EquipmentType:  string(kind),
				EquipmentIndex: i,
			})
		}
	}
	return alarms
}

type trackerAlarmSource struct {
	tracker *Tracker
}

func (s *trackerAlarmSource) Alarms() []Alarm {
	var alarms []Alarm
	switch s.tracker.State() {
	case LockFailed:
		alarms = append(alarms, Alarm{
			Severity:      SeverityError,
			Message:       "auto-track acquisition failed",
			AssetID:       "antenna",
			EquipmentType: string(StageAntenna),
		})
	case LockAcquiring:
		alarms = append(alarms, Alarm{
			Severity:      SeverityInfo,
			Message:       "auto-track acquiring",
			AssetID:       "antenna",
			EquipmentType: string(StageAntenna),
		})
	}
	if s.tracker.SkewWarning() {
		alarms = append(alarms, Alarm{
			Severity:      SeverityWarning,
			Message:       "feed skew beyond alignment limit",
			AssetID:       "antenna",
			EquipmentType: string(StageAntenna),
		})
	}
	if s.tracker.Loopback() {
		alarms = append(alarms, Alarm{
			Severity:      SeverityWarning,
			Message:       "loopback engaged: transmit path diverted",
			AssetID:       "antenna",
			EquipmentType: string(StageAntenna),
		})
	}
	return alarms
}

type analyzerAlarmSource struct {
	analyzer *Analyzer
}

func (s *analyzerAlarmSource) Alarms() []Alarm {
	bins := s.analyzer.traces[0].Bins
	for _, v := range bins {
		if v > s.analyzer.refLevel {
			return []Alarm{{
				Severity:      SeverityWarning,
				Message:       "signal exceeds reference level",
				AssetID:       "analyzer",
				EquipmentType: "spectrum_analyzer",
			}}
		}
	}
	return nil
}
