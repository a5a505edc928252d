package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSignalFound is returned by AutoTune when nothing in the
	// current span rises above the noise floor. The view is left
	// unchanged; callers surface the condition instead of retuning to
	// an arbitrary frequency.
	ErrNoSignalFound = errors.New("auto-tune: no signal found above noise floor")

	ErrTraceIndex = errors.New("trace index out of range")
)

// OutOfRangeError rejects a control intent whose value falls outside
// the hardware limits. State is left unchanged; Min/Max tell the caller
// the valid range.
type OutOfRangeError struct {
	What  string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.What, e.Value, e.Min, e.Max)
}

// outOfRange is a small constructor to keep validation sites terse.
func outOfRange(what string, value, min, max float64) error {
	return &OutOfRangeError{What: what, Value: value, Min: min, Max: max}
}
