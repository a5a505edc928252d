package core

import (
	"math"
	"time"
)

// LockState is the antenna tracking state.
type LockState string

const (
	LockManual    LockState = "manual"
	LockAcquiring LockState = "acquiring"
	LockLocked    LockState = "locked"
	LockFailed    LockState = "failed"
)

// Default tracking parameters.
const (
	DefaultPointingToleranceDeg   = 2.0
	DefaultAcquisitionWindow      = 5 * time.Second
	DefaultAcquisitionThresholdDB = -120.0
	SkewWarningThresholdDeg       = 45.0
)

// TrackerConfig is the closed set of tracking options.
type TrackerConfig struct {
	PointingToleranceDeg    float64
	AcquisitionWindow       time.Duration
	AcquisitionThresholdDBm float64
}

// DefaultTrackerConfig mirrors the hardware defaults.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		PointingToleranceDeg:    DefaultPointingToleranceDeg,
		AcquisitionWindow:       DefaultAcquisitionWindow,
		AcquisitionThresholdDBm: DefaultAcquisitionThresholdDB,
	}
}

// Tracker owns the antenna pointing and lock state, one per simulated
// antenna. Its lock state gates which signals are visible downstream.
// It is created powered-off at a default pointing and destroyed with
// the owning equipment session.
type Tracker struct {
	cfg TrackerConfig

	azimuthDeg   float64
	elevationDeg float64
	skewDeg      float64

	autoTrack bool
	state     LockState

	// acquiring measures tick time spent in the acquisition window.
	acquiring time.Duration

	// lockedSourceID is the origin the tracker is currently following.
	lockedSourceID string

	// loopback routes TX into RX for diagnostics, bypassing the state
	// machine entirely.
	loopback bool
}

// NewTracker creates a tracker at the given initial pointing. The
// threshold is taken as given, 0 dBm included; callers wanting the
// hardware default start from DefaultTrackerConfig.
func NewTracker(cfg TrackerConfig, azDeg, elDeg float64) *Tracker {
	if cfg.PointingToleranceDeg <= 0 {
		cfg.PointingToleranceDeg = DefaultPointingToleranceDeg
	}
	if cfg.AcquisitionWindow <= 0 {
		cfg.AcquisitionWindow = DefaultAcquisitionWindow
	}
	return &Tracker{
		cfg:          cfg,
		azimuthDeg:   azDeg,
		elevationDeg: elDeg,
		state:        LockManual,
	}
}

// State returns the current lock state.
func (t *Tracker) State() LockState { return t.state }

// AutoTrack reports whether auto-track is enabled.
func (t *Tracker) AutoTrack() bool { return t.autoTrack }

// Pointing returns the current azimuth and elevation in degrees.
func (t *Tracker) Pointing() (azDeg, elDeg float64) {
	return t.azimuthDeg, t.elevationDeg
}

// SkewDeg returns the feed skew angle.
func (t *Tracker) SkewDeg() float64 { return t.skewDeg }

// LockedSourceID identifies the signal origin being followed, empty
// unless Locked.
func (t *Tracker) LockedSourceID() string { return t.lockedSourceID }

// Loopback reports whether diagnostic TX-into-RX routing is active.
func (t *Tracker) Loopback() bool { return t.loopback }

// SetLoopback toggles diagnostic loopback routing. It does not touch
// the lock state machine; alarm handling treats loopback as mutually
// exclusive with real transmission awareness.
func (t *Tracker) SetLoopback(on bool) { t.loopback = on }

// SetPointing applies a manual azimuth/elevation edit. While Locked the
// edit breaks lock immediately and unconditionally: the state becomes
// Manual and auto-track is cleared within the same call, requiring an
// explicit re-enable.
func (t *Tracker) SetPointing(azDeg, elDeg float64) error {
	if azDeg < 0 || azDeg >= 360 {
		return outOfRange("azimuth", azDeg, 0, 360)
	}
	if elDeg < 0 || elDeg > 90 {
		return outOfRange("elevation", elDeg, 0, 90)
	}
	t.azimuthDeg = azDeg
	t.elevationDeg = elDeg
	if t.state == LockLocked {
		t.state = LockManual
		t.autoTrack = false
		t.lockedSourceID = ""
	}
	return nil
}

// SetSkew adjusts the feed skew. Skew is independent of the lock state
// machine; SkewWarning surfaces excessive values.
func (t *Tracker) SetSkew(skewDeg float64) error {
	if skewDeg < -90 || skewDeg > 90 {
		return outOfRange("skew", skewDeg, -90, 90)
	}
	t.skewDeg = skewDeg
	return nil
}

// SkewWarning reports whether the skew exceeds the warning threshold.
func (t *Tracker) SkewWarning() bool {
	return math.Abs(t.skewDeg) > SkewWarningThresholdDeg
}

// EnableAutoTrack starts (or retries after Failed) an acquisition.
func (t *Tracker) EnableAutoTrack() {
	t.autoTrack = true
	if t.state == LockManual || t.state == LockFailed {
		t.state = LockAcquiring
		t.acquiring = 0
	}
}

// DisableAutoTrack drops back to manual pointing.
func (t *Tracker) DisableAutoTrack() {
	t.autoTrack = false
	t.state = LockManual
	t.lockedSourceID = ""
	t.acquiring = 0
}

// ToggleAutoTrack flips auto-track and returns the new setting.
func (t *Tracker) ToggleAutoTrack() bool {
	if t.autoTrack {
		t.DisableAutoTrack()
	} else {
		t.EnableAutoTrack()
	}
	return t.autoTrack
}

// Tick advances the state machine by dt against the tick's candidate
// signal list. Acquiring locks onto the first qualifying candidate
// (inside the pointing tolerance and above the acquisition threshold)
// or fails once the window elapses. A locked target drifting out of
// tolerance re-enters acquisition with a fresh window.
func (t *Tracker) Tick(dt time.Duration, candidates []RfSignal) {
	switch t.state {
	case LockAcquiring:
		if sig, ok := t.findCandidate(candidates); ok {
			t.state = LockLocked
			t.lockedSourceID = sig.Origin.SourceID
			t.azimuthDeg = sig.Origin.AzimuthDeg
			t.elevationDeg = sig.Origin.ElevationDeg
			t.acquiring = 0
			return
		}
		t.acquiring += dt
		if t.acquiring >= t.cfg.AcquisitionWindow {
			t.state = LockFailed
			t.acquiring = 0
		}

	case LockLocked:
		if sig, ok := t.findCandidate(candidates); ok {
			// Follow the target.
			t.azimuthDeg = sig.Origin.AzimuthDeg
			t.elevationDeg = sig.Origin.ElevationDeg
			t.lockedSourceID = sig.Origin.SourceID
			return
		}
		t.state = LockAcquiring
		t.lockedSourceID = ""
		t.acquiring = 0
	}
}

// findCandidate returns the strongest candidate within the pointing
// tolerance and above the acquisition threshold.
func (t *Tracker) findCandidate(candidates []RfSignal) (RfSignal, bool) {
	best := RfSignal{PowerDBm: math.Inf(-1)}
	found := false
	for _, sig := range candidates {
		if sig.PowerDBm < t.cfg.AcquisitionThresholdDBm {
			continue
		}
		if !t.WithinTolerance(sig.Origin.AzimuthDeg, sig.Origin.ElevationDeg) {
			continue
		}
		if sig.PowerDBm > best.PowerDBm {
			best, found = sig, true
		}
	}
	return best, found
}

// WithinTolerance reports whether a direction falls inside the pointing
// tolerance of the current antenna attitude. Azimuth wraps at 360.
func (t *Tracker) WithinTolerance(azDeg, elDeg float64) bool {
	dAz := math.Abs(azDeg - t.azimuthDeg)
	if dAz > 180 {
		dAz = 360 - dAz
	}
	dEl := math.Abs(elDeg - t.elevationDeg)
	return dAz <= t.cfg.PointingToleranceDeg && dEl <= t.cfg.PointingToleranceDeg
}

// VisibleSignals filters the tick's candidate list down to what reaches
// the receive chain: with loopback on, nothing external is visible;
// otherwise only signals inside the pointing tolerance pass.
func (t *Tracker) VisibleSignals(candidates []RfSignal) []RfSignal {
	if t.loopback {
		return nil
	}
	visible := make([]RfSignal, 0, len(candidates))
	for _, sig := range candidates {
		if t.WithinTolerance(sig.Origin.AzimuthDeg, sig.Origin.ElevationDeg) {
			visible = append(visible, sig)
		}
	}
	return visible
}
