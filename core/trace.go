package core

import (
	"fmt"
	"math"
)

// TraceMode selects how a trace folds each new sweep into its bins.
type TraceMode string

const (
	TraceClearWrite TraceMode = "clear_write"
	TraceHold       TraceMode = "hold"
	TraceMaxHold    TraceMode = "max_hold"
	TraceMinHold    TraceMode = "min_hold"
	TraceAverage    TraceMode = "average"
)

// TraceCount is the number of traces per analyzer, addressed 1-based.
const TraceCount = 3

// Trace is a single display trace. Bin updates are computed into a new
// buffer and swapped in whole, so a consumer tearing the analyzer down
// mid-tick can never observe a half-written sweep.
type Trace struct {
	IsVisible  bool      `json:"isVisible"`
	IsUpdating bool      `json:"isUpdating"`
	Mode       TraceMode `json:"mode"`

	Bins []float64 `json:"bins,omitempty"`

	// AverageCount is the number of sweeps folded into Bins while in
	// average mode; it resets when the mode changes.
	AverageCount int `json:"averageCount,omitempty"`
}

// NewTrace builds an updating clear-write trace. Only trace 1 starts
// visible, matching the front-panel power-on state.
func NewTrace(visible bool) *Trace {
	return &Trace{
		IsVisible:  visible,
		IsUpdating: true,
		Mode:       TraceClearWrite,
	}
}

// SetMode switches trace behaviour. Hold freezes the current bins;
// switching away re-arms updates. Hold accumulators and the running
// average restart whenever the mode changes.
func (t *Trace) SetMode(mode TraceMode) {
	if t.Mode == mode {
		return
	}
	t.Mode = mode
	t.AverageCount = 0
	t.IsUpdating = mode != TraceHold
	if mode == TraceMaxHold || mode == TraceMinHold {
		// Restart accumulation from the next sweep.
		t.Bins = nil
	}
}

// Reset clears accumulated bins, restarting max/min hold and averaging.
func (t *Trace) Reset() {
	t.Bins = nil
	t.AverageCount = 0
}

// Update folds a freshly synthesized sweep into the trace according to
// its mode. The sweep slice is owned by the caller and never retained;
// every path below allocates its own buffer before the swap.
func (t *Trace) Update(sweep []float64) {
	if !t.IsUpdating || t.Mode == TraceHold {
		return
	}
	if len(t.Bins) != len(sweep) {
		// Span or bin-count change invalidates any accumulation.
		t.Bins = append([]float64(nil), sweep...)
		t.AverageCount = 1
		return
	}

	next := make([]float64, len(sweep))
	switch t.Mode {
	case TraceClearWrite:
		copy(next, sweep)
	case TraceMaxHold:
		for i, v := range sweep {
			next[i] = math.Max(t.Bins[i], v)
		}
	case TraceMinHold:
		for i, v := range sweep {
			next[i] = math.Min(t.Bins[i], v)
		}
	case TraceAverage:
		n := float64(t.AverageCount)
		for i, v := range sweep {
			next[i] = (t.Bins[i]*n + v) / (n + 1)
		}
		t.AverageCount++
	default:
		copy(next, sweep)
	}
	t.Bins = next
	if t.Mode != TraceAverage {
		t.AverageCount = 1
	}
}

// validTraceIndex maps the 1-based front-panel index to a slice index.
func validTraceIndex(index int) (int, error) {
	if index < 1 || index > TraceCount {
		return 0, fmt.Errorf("%w: %d (valid 1..%d)", ErrTraceIndex, index, TraceCount)
	}
	return index - 1, nil
}
