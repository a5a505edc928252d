package core

import (
	"fmt"
	"math"
	"math/rand"
)

// Hardware limits of the simulated analyzer front end.
const (
	MinFrequencyHz = 5e3
	MaxFrequencyHz = 25.5e9
	MinSpanHz      = 1.0
	MinRBWHz       = 1.0
	MaxRBWHz       = 300e6

	MinAmplitudeLimitDBm = -200.0
	MaxAmplitudeLimitDBm = 30.0
)

// DisplayFloorDBm is the lowest level a bin can hold. A broken chain
// (-Inf from the resolver) renders at this level so sweeps stay finite
// and serializable.
const DisplayFloorDBm = -200.0

// ScreenMode selects the analyzer display layout. A single control
// action cycles density -> waterfall -> both -> density.
type ScreenMode string

const (
	ScreenSpectralDensity ScreenMode = "spectral_density"
	ScreenWaterfall       ScreenMode = "waterfall"
	ScreenBoth            ScreenMode = "both"
)

// LockedControl decides which quantity stays pinned while the start or
// stop frequency is edited interactively.
type LockedControl string

const (
	LockFrequency LockedControl = "freq"
	LockSpan      LockedControl = "span"
)

// AnalyzerConfig is the closed set of analyzer construction options.
// Invalid tap or mode values are unrepresentable by construction.
type AnalyzerConfig struct {
	BinCount int
	Seed     int64

	// TapA is always active; TapB is observed as well when enabled.
	TapA       TapPoint
	TapB       TapPoint
	TapBActive bool

	// PeakExcursionDB is the prominence a local maximum needs before it
	// ranks as a marker peak.
	PeakExcursionDB float64

	// JitterDB scales the reproducible per-bin noise jitter.
	JitterDB float64
}

// DefaultAnalyzerConfig mirrors the front-panel power-on state.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		BinCount:        501,
		Seed:            1,
		TapA:            TapRxIF,
		PeakExcursionDB: 6,
		JitterDB:        1.0,
	}
}

// Analyzer is the multi-trace spectrum analyzer state machine. It
// consumes the resolver's cascade numbers plus a signal list and
// synthesizes per-bin power values every refresh tick. It has no
// internal timer; the owning engine drives it.
type Analyzer struct {
	resolver *SignalPathResolver
	cfg      AnalyzerConfig

	centerHz   float64
	spanHz     float64
	refLevel   float64
	minAmpDBm  float64
	maxAmpDBm  float64
	rbwHz      float64 // 0 = auto (tracks span)
	locked     LockedControl
	screenMode ScreenMode

	traces [TraceCount]*Trace

	markersEnabled bool
	markers        []Marker
	markerIndex    int

	// Working baseline for the current tick, from the resolver. The tap
	// records which of A/B won the floor comparison so displayed values
	// use that tap's gain, not unconditionally tap A's.
	baselineTap       TapPoint
	baselineFloorDBm  float64
	baselineApplyGain bool

	tickIndex uint64
}

// NewAnalyzer constructs an analyzer observing the given chain at its
// configured taps. The host constructs one per analyzer instance and
// passes it explicitly; there are no process-wide singletons.
func NewAnalyzer(resolver *SignalPathResolver, cfg AnalyzerConfig) *Analyzer {
	if cfg.BinCount <= 0 {
		cfg.BinCount = DefaultAnalyzerConfig().BinCount
	}
	if cfg.PeakExcursionDB <= 0 {
		cfg.PeakExcursionDB = DefaultAnalyzerConfig().PeakExcursionDB
	}
	a := &Analyzer{
		resolver:    resolver,
		cfg:         cfg,
		baselineTap: cfg.TapA,
		centerHz:    1.2e9,
		spanHz:      100e6,
		refLevel:    -30,
		minAmpDBm:   -120,
		maxAmpDBm:   -30,
		locked:      LockFrequency,
		screenMode:  ScreenSpectralDensity,
	}
	for i := range a.traces {
		a.traces[i] = NewTrace(i == 0)
	}
	return a
}

// CenterFrequencyHz returns the current center frequency.
func (a *Analyzer) CenterFrequencyHz() float64 { return a.centerHz }

// SpanHz returns the current span.
func (a *Analyzer) SpanHz() float64 { return a.spanHz }

// StartFrequencyHz returns the left edge of the window.
func (a *Analyzer) StartFrequencyHz() float64 { return a.centerHz - a.spanHz/2 }

// StopFrequencyHz returns the right edge of the window.
func (a *Analyzer) StopFrequencyHz() float64 { return a.centerHz + a.spanHz/2 }

// ReferenceLevelDBm returns the current reference level.
func (a *Analyzer) ReferenceLevelDBm() float64 { return a.refLevel }

// ScreenMode returns the current display layout.
func (a *Analyzer) ScreenMode() ScreenMode { return a.screenMode }

// LockedControl returns which quantity is pinned during edits.
func (a *Analyzer) LockedControl() LockedControl { return a.locked }

// Trace returns the trace at the 1-based index, or an error when the
// index is outside 1..3.
func (a *Analyzer) Trace(index int) (*Trace, error) {
	i, err := validTraceIndex(index)
	if err != nil {
		return nil, err
	}
	return a.traces[i], nil
}

// EffectiveRBWHz resolves the "auto" setting: auto tracks the span.
func (a *Analyzer) EffectiveRBWHz() float64 {
	if a.rbwHz > 0 {
		return a.rbwHz
	}
	return a.spanHz
}

// validateWindow checks a candidate center/span pair against the
// hardware limits without mutating anything.
func validateWindow(centerHz, spanHz float64) error {
	if spanHz < MinSpanHz || spanHz > MaxFrequencyHz-MinFrequencyHz {
		return outOfRange("span", spanHz, MinSpanHz, MaxFrequencyHz-MinFrequencyHz)
	}
	if centerHz-spanHz/2 < MinFrequencyHz || centerHz+spanHz/2 > MaxFrequencyHz {
		return outOfRange("center frequency", centerHz,
			MinFrequencyHz+spanHz/2, MaxFrequencyHz-spanHz/2)
	}
	return nil
}

// SetCenterFrequencyHz moves the window keeping span fixed. The edit is
// rejected, leaving prior state unchanged, when either window edge
// would leave the hardware range.
func (a *Analyzer) SetCenterFrequencyHz(hz float64) error {
	if err := validateWindow(hz, a.spanHz); err != nil {
		return err
	}
	a.centerHz = hz
	return nil
}

// SetSpanHz resizes the window keeping center fixed.
func (a *Analyzer) SetSpanHz(hz float64) error {
	if err := validateWindow(a.centerHz, hz); err != nil {
		return err
	}
	a.spanHz = hz
	return nil
}

// SetStartFrequencyHz edits the left window edge. With the frequency
// control locked the stop frequency is preserved exactly and the span
// absorbs the edit; with the span locked the span is preserved and the
// center moves instead.
func (a *Analyzer) SetStartFrequencyHz(hz float64) error {
	switch a.locked {
	case LockSpan:
		return a.SetCenterFrequencyHz(hz + a.spanHz/2)
	default:
		stop := a.StopFrequencyHz()
		if hz < MinFrequencyHz || hz >= stop {
			return outOfRange("start frequency", hz, MinFrequencyHz, stop-MinSpanHz)
		}
		a.spanHz = stop - hz
		a.centerHz = (hz + stop) / 2
		return nil
	}
}

// SetStopFrequencyHz edits the right window edge, symmetric to
// SetStartFrequencyHz.
func (a *Analyzer) SetStopFrequencyHz(hz float64) error {
	switch a.locked {
	case LockSpan:
		return a.SetCenterFrequencyHz(hz - a.spanHz/2)
	default:
		start := a.StartFrequencyHz()
		if hz > MaxFrequencyHz || hz <= start {
			return outOfRange("stop frequency", hz, start+MinSpanHz, MaxFrequencyHz)
		}
		a.spanHz = hz - start
		a.centerHz = (start + hz) / 2
		return nil
	}
}

// SetLockedControl selects which quantity stays pinned during edits.
func (a *Analyzer) SetLockedControl(lc LockedControl) {
	if lc == LockSpan {
		a.locked = LockSpan
	} else {
		a.locked = LockFrequency
	}
}

// SetReferenceLevelDBm moves the top of the display.
func (a *Analyzer) SetReferenceLevelDBm(dbm float64) error {
	if dbm < MinAmplitudeLimitDBm || dbm > MaxAmplitudeLimitDBm {
		return outOfRange("reference level", dbm, MinAmplitudeLimitDBm, MaxAmplitudeLimitDBm)
	}
	a.refLevel = dbm
	a.maxAmpDBm = dbm
	return nil
}

// SetAmplitudeRangeDBm sets the displayed amplitude window.
func (a *Analyzer) SetAmplitudeRangeDBm(minDBm, maxDBm float64) error {
	if minDBm >= maxDBm {
		return outOfRange("min amplitude", minDBm, MinAmplitudeLimitDBm, maxDBm)
	}
	if minDBm < MinAmplitudeLimitDBm || maxDBm > MaxAmplitudeLimitDBm {
		return outOfRange("amplitude range", maxDBm, MinAmplitudeLimitDBm, MaxAmplitudeLimitDBm)
	}
	a.minAmpDBm = minDBm
	a.maxAmpDBm = maxDBm
	return nil
}

// SetRBWHz sets an explicit resolution bandwidth. Out-of-range entries
// are rejected with a bounds error, not clamped.
func (a *Analyzer) SetRBWHz(hz float64) error {
	if hz < MinRBWHz || hz > MaxRBWHz {
		return outOfRange("resolution bandwidth", hz, MinRBWHz, MaxRBWHz)
	}
	a.rbwHz = hz
	return nil
}

// PrimaryTap returns the tap currently observed as tap A.
func (a *Analyzer) PrimaryTap() TapPoint { return a.cfg.TapA }

// SetPrimaryTap moves the analyzer's main observation point.
func (a *Analyzer) SetPrimaryTap(tap TapPoint) error {
	if !tap.IsValid() {
		return fmt.Errorf("unknown tap point %d", int(tap))
	}
	a.cfg.TapA = tap
	return nil
}

// SetSecondaryTap selects tap B and whether it participates in the
// baseline comparison. An invalid tap disables it.
func (a *Analyzer) SetSecondaryTap(tap TapPoint, active bool) error {
	if active && !tap.IsValid() {
		return fmt.Errorf("unknown tap point %d", int(tap))
	}
	a.cfg.TapB = tap
	a.cfg.TapBActive = active
	return nil
}

// SetRBWAuto returns the resolution bandwidth to span-tracking.
func (a *Analyzer) SetRBWAuto() { a.rbwHz = 0 }

// RBWIsAuto reports whether the RBW tracks the span.
func (a *Analyzer) RBWIsAuto() bool { return a.rbwHz == 0 }

// SetTraceMode changes a trace's fold mode; index is 1-based.
func (a *Analyzer) SetTraceMode(index int, mode TraceMode) error {
	tr, err := a.Trace(index)
	if err != nil {
		return err
	}
	tr.SetMode(mode)
	return nil
}

// SetTraceVisible toggles a trace on screen without touching its bins.
func (a *Analyzer) SetTraceVisible(index int, visible bool) error {
	tr, err := a.Trace(index)
	if err != nil {
		return err
	}
	tr.IsVisible = visible
	return nil
}

// ResetTrace clears a trace's accumulation (max/min hold, average).
func (a *Analyzer) ResetTrace(index int) error {
	tr, err := a.Trace(index)
	if err != nil {
		return err
	}
	tr.Reset()
	return nil
}

// CycleScreenMode advances density -> waterfall -> both -> density.
func (a *Analyzer) CycleScreenMode() ScreenMode {
	switch a.screenMode {
	case ScreenSpectralDensity:
		a.screenMode = ScreenWaterfall
	case ScreenWaterfall:
		a.screenMode = ScreenBoth
	default:
		a.screenMode = ScreenSpectralDensity
	}
	return a.screenMode
}

// Tick runs one refresh cycle: resolve the working baseline, synthesize
// a sweep from the in-span signals, fold it into every updating trace,
// and re-rank marker peaks. The sweep is computed into a fresh buffer
// and swapped, never mutated bin by bin in place.
func (a *Analyzer) Tick(signals []RfSignal) {
	a.tickIndex++
	a.resolveBaseline()

	sweep := a.synthesize(signals)
	for _, tr := range a.traces {
		tr.Update(sweep)
	}

	if a.markersEnabled {
		a.rankPeaks()
	}
}

// resolveBaseline picks the higher noise floor of the active taps and
// remembers whether gain still has to be applied on display.
func (a *Analyzer) resolveBaseline() {
	rbw := a.EffectiveRBWHz()
	tap := a.cfg.TapA
	floor, apply := a.resolver.NoiseFloorAt(tap, rbw)
	display := displayedFloor(floor, apply, a.resolver.GainTo(tap))

	if a.cfg.TapBActive {
		floorB, applyB := a.resolver.NoiseFloorAt(a.cfg.TapB, rbw)
		displayB := displayedFloor(floorB, applyB, a.resolver.GainTo(a.cfg.TapB))
		if displayB > display {
			tap, floor, apply = a.cfg.TapB, floorB, applyB
		}
	}

	a.baselineTap = tap
	a.baselineFloorDBm = floor
	a.baselineApplyGain = apply
}

// BaselineFloorDisplayedDBm is the noise floor as it appears on screen,
// gain of the winning tap included when the resolver asks for it.
func (a *Analyzer) BaselineFloorDisplayedDBm() float64 {
	return displayedFloor(a.baselineFloorDBm, a.baselineApplyGain, a.resolver.GainTo(a.baselineTap))
}

func displayedFloor(floor float64, applyGain bool, gain float64) float64 {
	if !applyGain {
		return floor
	}
	return floor + gain
}

// synthesize builds one sweep buffer: baseline noise with reproducible
// jitter, plus every in-span signal shaped by its bandwidth with RBW
// skirts at the edges.
func (a *Analyzer) synthesize(signals []RfSignal) []float64 {
	bins := make([]float64, a.cfg.BinCount)
	binWidth := a.spanHz / float64(a.cfg.BinCount)
	start := a.StartFrequencyHz()
	rbw := a.EffectiveRBWHz()

	floor := a.BaselineFloorDisplayedDBm()
	gain := a.resolver.GainTo(a.baselineTap)

	// Jitter is seeded from the base seed and tick index so an
	// identical re-tick reproduces identical bins.
	rng := rand.New(rand.NewSource(a.cfg.Seed + int64(a.tickIndex)*0x9E3779B9))

	for i := range bins {
		f := start + (float64(i)+0.5)*binWidth

		level := floor
		if !math.IsInf(level, -1) {
			level += (rng.Float64()*2 - 1) * a.cfg.JitterDB
		}

		for _, sig := range signals {
			if sig.FrequencyHz < start || sig.FrequencyHz > a.StopFrequencyHz() {
				continue
			}
			displayed := sig.PowerDBm
			if a.baselineApplyGain {
				displayed += gain
			}
			if math.IsInf(displayed, -1) {
				continue
			}
			level = addPowerDBm(level, signalLevelAt(sig, displayed, f, rbw))
		}

		bins[i] = math.Max(level, DisplayFloorDBm)
	}
	return bins
}

// signalLevelAt shapes a carrier across frequency: flat inside the
// occupied bandwidth, rolling off outside it at skirtSlopeDB per RBW.
func signalLevelAt(sig RfSignal, displayedDBm, freqHz, rbwHz float64) float64 {
	const skirtSlopeDB = 30.0

	halfBW := sig.BandwidthHz / 2
	dist := math.Abs(freqHz - sig.FrequencyHz)
	if dist <= halfBW {
		return displayedDBm
	}
	if rbwHz <= 0 {
		return math.Inf(-1)
	}
	atten := skirtSlopeDB * (dist - halfBW) / rbwHz
	if atten > 150 {
		return math.Inf(-1)
	}
	return displayedDBm - atten
}

// AutoTune scans the current span for the strongest signal above the
// working noise floor. On a hit it re-centers on the carrier, sets the
// span to 1.1x its bandwidth, raises the max amplitude to the next
// 10 dB step above the displayed power and drops the min amplitude to
// 6 dB below the floor. With nothing above the floor the view is left
// untouched and ErrNoSignalFound is returned.
func (a *Analyzer) AutoTune(signals []RfSignal) error {
	a.resolveBaseline()
	floor := a.BaselineFloorDisplayedDBm()
	gain := a.resolver.GainTo(a.baselineTap)

	best := -1
	bestPower := math.Inf(-1)
	for i, sig := range signals {
		if sig.FrequencyHz < a.StartFrequencyHz() || sig.FrequencyHz > a.StopFrequencyHz() {
			continue
		}
		displayed := sig.PowerDBm
		if a.baselineApplyGain {
			displayed += gain
		}
		if math.IsInf(displayed, -1) || displayed <= floor {
			continue
		}
		if displayed > bestPower {
			best, bestPower = i, displayed
		}
	}
	if best < 0 {
		return ErrNoSignalFound
	}

	sig := signals[best]
	span := 1.1 * sig.BandwidthHz
	if span < MinSpanHz {
		span = MinSpanHz
	}
	center := sig.FrequencyHz
	// Pull the window back inside the hardware range rather than reject
	// an auto action the operator cannot refine.
	if center-span/2 < MinFrequencyHz {
		center = MinFrequencyHz + span/2
	}
	if center+span/2 > MaxFrequencyHz {
		center = MaxFrequencyHz - span/2
	}
	if err := validateWindow(center, span); err != nil {
		return err
	}

	a.centerHz = center
	a.spanHz = span
	a.maxAmpDBm = math.Ceil(bestPower/10) * 10
	a.refLevel = a.maxAmpDBm
	if !math.IsInf(floor, -1) {
		a.minAmpDBm = floor - 6
	}
	return nil
}
