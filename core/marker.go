package core

import "sort"

// MaxMarkers caps the number of ranked peaks kept per sweep.
const MaxMarkers = 10

// Marker is a ranked peak in the most recent sweep of trace 1.
type Marker struct {
	Bin         int     `json:"bin"`
	FrequencyHz float64 `json:"frequencyHz"`
	PowerDBm    float64 `json:"powerDBm"`
}

// MarkersEnabled reports whether peak markers are active.
func (a *Analyzer) MarkersEnabled() bool { return a.markersEnabled }

// Markers returns the current ranked peak list, strongest first.
func (a *Analyzer) Markers() []Marker { return a.markers }

// ActiveMarker returns the currently selected marker, if any.
func (a *Analyzer) ActiveMarker() (Marker, bool) {
	if !a.markersEnabled || len(a.markers) == 0 {
		return Marker{}, false
	}
	return a.markers[a.markerIndex], true
}

// ToggleMarkers flips marker mode. Enabling ranks peaks immediately
// from the current trace contents.
func (a *Analyzer) ToggleMarkers() bool {
	a.markersEnabled = !a.markersEnabled
	if a.markersEnabled {
		a.rankPeaks()
	} else {
		a.markers = nil
		a.markerIndex = 0
	}
	return a.markersEnabled
}

// StepMarker moves the marker selection by delta (major/minor tick
// input), wrapping around the peak list instead of running off either
// end.
func (a *Analyzer) StepMarker(delta int) {
	n := len(a.markers)
	if !a.markersEnabled || n == 0 {
		return
	}
	a.markerIndex = ((a.markerIndex+delta)%n + n) % n
}

// rankPeaks finds local maxima in trace 1 whose prominence over the
// surrounding valleys is at least the configured excursion, orders them
// by descending power, and caps the list at MaxMarkers. The selection
// index stays valid modulo the new peak count.
func (a *Analyzer) rankPeaks() {
	bins := a.traces[0].Bins
	peaks := findPeaks(bins, a.cfg.PeakExcursionDB)

	sort.Slice(peaks, func(i, j int) bool {
		return bins[peaks[i]] > bins[peaks[j]]
	})
	if len(peaks) > MaxMarkers {
		peaks = peaks[:MaxMarkers]
	}

	binWidth := a.spanHz / float64(a.cfg.BinCount)
	start := a.StartFrequencyHz()

	markers := make([]Marker, len(peaks))
	for i, b := range peaks {
		markers[i] = Marker{
			Bin:         b,
			FrequencyHz: start + (float64(b)+0.5)*binWidth,
			PowerDBm:    bins[b],
		}
	}
	a.markers = markers

	if len(markers) == 0 {
		a.markerIndex = 0
	} else {
		a.markerIndex %= len(markers)
	}
}

// findPeaks returns indices of local maxima whose prominence (height
// above the deeper of the two adjacent valleys toward the next higher
// bin) meets the excursion threshold.
func findPeaks(bins []float64, excursionDB float64) []int {
	var peaks []int
	for i := range bins {
		if !isLocalMax(bins, i) {
			continue
		}
		if prominence(bins, i) >= excursionDB {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

func isLocalMax(bins []float64, i int) bool {
	if i > 0 && bins[i] <= bins[i-1] {
		return false
	}
	if i < len(bins)-1 && bins[i] < bins[i+1] {
		return false
	}
	return true
}

// prominence walks outward from a local maximum to the nearest strictly
// higher bin on each side, tracking the lowest valley crossed; the
// peak's prominence is its height above the higher of those valleys.
func prominence(bins []float64, i int) float64 {
	left := lowestValley(bins, i, -1)
	right := lowestValley(bins, i, +1)
	base := left
	if right > base {
		base = right
	}
	return bins[i] - base
}

func lowestValley(bins []float64, i, dir int) float64 {
	valley := bins[i]
	for j := i + dir; j >= 0 && j < len(bins); j += dir {
		if bins[j] > bins[i] {
			return valley
		}
		if bins[j] < valley {
			valley = bins[j]
		}
	}
	return valley
}
