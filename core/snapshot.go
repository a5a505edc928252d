package core

import "math"

// TapReading is the resolver output for one tap point at tick time.
// Gain and noise floor are nil when the chain to the tap is broken
// (-Inf is a valid terminal value, but it does not serialize).
type TapReading struct {
	Tap             TapPoint `json:"tap"`
	GainDB          *float64 `json:"gainDB"`
	NoiseFloorDBm   *float64 `json:"noiseFloorDBm"`
	ShouldApplyGain bool     `json:"shouldApplyGain"`
}

// TrackingSnapshot mirrors the tracker state for rendering and sync.
type TrackingSnapshot struct {
	AzimuthDeg     float64   `json:"azimuthDeg"`
	ElevationDeg   float64   `json:"elevationDeg"`
	SkewDeg        float64   `json:"skewDeg"`
	SkewWarning    bool      `json:"skewWarning"`
	IsAutoTrack    bool      `json:"isAutoTrack"`
	LockState      LockState `json:"lockState"`
	LockedSourceID string    `json:"lockedSourceID,omitempty"`
	Loopback       bool      `json:"loopback"`
}

// AnalyzerSnapshot is the complete per-tick output consumed by the
// rendering and persistence collaborators. It round-trips through JSON
// without invoking any side effects, and restoring it reproduces
// identical trace output for identical inputs.
type AnalyzerSnapshot struct {
	TickIndex uint64 `json:"tickIndex"`

	CenterFrequencyHz float64       `json:"centerFrequencyHz"`
	SpanHz            float64       `json:"spanHz"`
	ReferenceLevelDBm float64       `json:"referenceLevelDBm"`
	MinAmplitudeDBm   float64       `json:"minAmplitudeDBm"`
	MaxAmplitudeDBm   float64       `json:"maxAmplitudeDBm"`
	RBWHz             float64       `json:"rbwHz"`
	RBWAuto           bool          `json:"rbwAuto"`
	ScreenMode        ScreenMode    `json:"screenMode"`
	LockedControl     LockedControl `json:"lockedControl"`

	Traces         [TraceCount]Trace `json:"traces"`
	MarkersEnabled bool              `json:"markersEnabled"`
	MarkerIndex    int               `json:"markerIndex"`
	Markers        []Marker          `json:"markers,omitempty"`

	BaselineFloorDBm *float64     `json:"baselineFloorDBm"`
	Taps             []TapReading `json:"taps"`

	Tracking TrackingSnapshot `json:"tracking"`

	Alarms       AlarmState `json:"alarms"`
	AlarmChanged bool       `json:"alarmChanged"`
}

// finiteOrNil converts -Inf terminal values to nil for serialization.
func finiteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
