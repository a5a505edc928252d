package core

// Polarization of an RF carrier.
type Polarization string

const (
	PolarizationHorizontal Polarization = "H"
	PolarizationVertical   Polarization = "V"
	PolarizationLHCP       Polarization = "LHCP"
	PolarizationRHCP       Polarization = "RHCP"
)

// SignalOrigin describes where a signal arrives from, as seen by the
// antenna. Azimuth/elevation let the tracking state machine decide
// whether the signal falls inside the pointing tolerance.
type SignalOrigin struct {
	SourceID     string  `json:"sourceID"`
	AzimuthDeg   float64 `json:"azimuthDeg"`
	ElevationDeg float64 `json:"elevationDeg"`
}

// RfSignal is a carrier present at the antenna aperture (or, for
// loopback, at the TX IF input). Signals are immutable per simulation
// tick; each tick produces a fresh list.
type RfSignal struct {
	ID           string       `json:"id"`
	FrequencyHz  float64      `json:"frequencyHz"`
	BandwidthHz  float64      `json:"bandwidthHz"`
	PowerDBm     float64      `json:"powerDBm"`
	Modulation   string       `json:"modulation"`
	Polarization Polarization `json:"polarization"`
	Origin       SignalOrigin `json:"origin"`
}

// Overlaps reports whether the occupied bandwidths of two signals
// intersect. This is the full extent of interference modelling here.
func (s RfSignal) Overlaps(other RfSignal) bool {
	loA, hiA := s.FrequencyHz-s.BandwidthHz/2, s.FrequencyHz+s.BandwidthHz/2
	loB, hiB := other.FrequencyHz-other.BandwidthHz/2, other.FrequencyHz+other.BandwidthHz/2
	return !(hiA < loB || loA > hiB)
}
