package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// WGS-84 ellipsoid parameters for the station ECEF conversion.
const (
	wgs84A  = 6378.137             // semi-major axis (km)
	wgs84F  = 1.0 / 298.257223563  // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// StationLocation is the ground station's geodetic position.
type StationLocation struct {
	LatDeg float64 `json:"latDeg"`
	LonDeg float64 `json:"lonDeg"`
	AltM   float64 `json:"altM"`
}

// ecef returns the station position in ECEF kilometres.
func (s StationLocation) ecef() (x, y, z float64) {
	lat := s.LatDeg * math.Pi / 180
	lon := s.LonDeg * math.Pi / 180
	altKm := s.AltM / 1000

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	x = (n + altKm) * cosLat * math.Cos(lon)
	y = (n + altKm) * cosLat * math.Sin(lon)
	z = (n*(1-wgs84E2) + altKm) * sinLat
	return x, y, z
}

// LookAngles holds azimuth/elevation/range from the station to a
// target. Azimuth is 0 = North, clockwise; elevation 0 = horizon.
type LookAngles struct {
	AzimuthDeg   float64
	ElevationDeg float64
	RangeKm      float64
}

// LookAnglesTo converts a target ECEF position (km) into topocentric
// look angles via the local east/north/up frame at the station.
func (s StationLocation) LookAnglesTo(targetX, targetY, targetZ float64) LookAngles {
	sx, sy, sz := s.ecef()
	dx, dy, dz := targetX-sx, targetY-sy, targetZ-sz

	lat := s.LatDeg * math.Pi / 180
	lon := s.LonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	east := -sinLon*dx + cosLon*dy
	north := -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz
	up := cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz

	rng := math.Sqrt(dx*dx + dy*dy + dz*dz)
	az := math.Atan2(east, north) * 180 / math.Pi
	if az < 0 {
		az += 360
	}
	el := 0.0
	if rng > 0 {
		el = math.Asin(up/rng) * 180 / math.Pi
	}
	return LookAngles{AzimuthDeg: az, ElevationDeg: el, RangeKm: rng}
}

// SignalPlan is one carrier a source transmits. PowerDBm is the level
// arriving at the antenna aperture when the source is at ReferenceKm;
// for orbital sources the level follows free-space spreading relative
// to that reference.
type SignalPlan struct {
	ID           string       `json:"id"`
	FrequencyHz  float64      `json:"frequencyHz"`
	BandwidthHz  float64      `json:"bandwidthHz"`
	PowerDBm     float64      `json:"powerDBm"`
	Modulation   string       `json:"modulation"`
	Polarization Polarization `json:"polarization"`
	ReferenceKm  float64      `json:"referenceKm,omitempty"`
}

// SignalSource produces the candidate signals arriving at the station
// at a given simulation time.
type SignalSource interface {
	SignalsAt(simTime time.Time) []RfSignal
}

// SatelliteSource propagates a TLE with SGP4 and emits its signal plan
// whenever the satellite is above the station's horizon.
type SatelliteSource struct {
	ID      string
	Station StationLocation
	Plans   []SignalPlan

	sat satellite.Satellite
}

// NewSatelliteSource constructs an orbital source from TLE lines.
func NewSatelliteSource(id string, station StationLocation, line1, line2 string, plans []SignalPlan) *SatelliteSource {
	return &SatelliteSource{
		ID:      id,
		Station: station,
		Plans:   plans,
		sat:     satellite.TLEToSat(line1, line2, satellite.GravityWGS72),
	}
}

// SignalsAt propagates the satellite to simTime and emits its carriers
// with the station-relative origin attached. Below the horizon the
// source emits nothing.
func (s *SatelliteSource) SignalsAt(simTime time.Time) []RfSignal {
	year, month, day := simTime.Date()
	hour, min, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(s.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	look := s.Station.LookAnglesTo(posECEF.X, posECEF.Y, posECEF.Z)
	if look.ElevationDeg <= 0 {
		return nil
	}

	origin := SignalOrigin{
		SourceID:     s.ID,
		AzimuthDeg:   look.AzimuthDeg,
		ElevationDeg: look.ElevationDeg,
	}

	signals := make([]RfSignal, 0, len(s.Plans))
	for _, plan := range s.Plans {
		power := plan.PowerDBm
		if plan.ReferenceKm > 0 && look.RangeKm > 0 {
			// Free-space spreading relative to the reference range.
			power -= 20 * math.Log10(look.RangeKm/plan.ReferenceKm)
		}
		signals = append(signals, RfSignal{
			ID:           plan.ID,
			FrequencyHz:  plan.FrequencyHz,
			BandwidthHz:  plan.BandwidthHz,
			PowerDBm:     power,
			Modulation:   plan.Modulation,
			Polarization: plan.Polarization,
			Origin:       origin,
		})
	}
	return signals
}

// FixedSource emits carriers from a constant direction, useful for
// geostationary satellites and scenario test signals.
type FixedSource struct {
	ID           string
	AzimuthDeg   float64
	ElevationDeg float64
	Plans        []SignalPlan
}

// SignalsAt emits the plan unconditionally with the fixed origin.
func (s *FixedSource) SignalsAt(time.Time) []RfSignal {
	origin := SignalOrigin{
		SourceID:     s.ID,
		AzimuthDeg:   s.AzimuthDeg,
		ElevationDeg: s.ElevationDeg,
	}
	signals := make([]RfSignal, 0, len(s.Plans))
	for _, plan := range s.Plans {
		signals = append(signals, RfSignal{
			ID:           plan.ID,
			FrequencyHz:  plan.FrequencyHz,
			BandwidthHz:  plan.BandwidthHz,
			PowerDBm:     plan.PowerDBm,
			Modulation:   plan.Modulation,
			Polarization: plan.Polarization,
			Origin:       origin,
		})
	}
	return signals
}

// SignalEnvironment collects every source in a scenario and produces
// the tick's immutable candidate list.
type SignalEnvironment struct {
	Sources []SignalSource
}

// SignalsAt gathers all carriers present at simTime. A fresh slice is
// returned every call; callers never see in-place mutation across
// ticks.
func (e *SignalEnvironment) SignalsAt(simTime time.Time) []RfSignal {
	var all []RfSignal
	for _, src := range e.Sources {
		all = append(all, src.SignalsAt(simTime)...)
	}
	return all
}
