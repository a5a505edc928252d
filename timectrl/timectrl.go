package timectrl

import (
	"sync"
	"time"
)

// SimClock is the read side of simulation time. Components that only
// need "what time is it in the simulation" (signal sources propagating
// orbits, the recorder stamping sweeps) depend on this instead of the
// concrete controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime advances one Tick of simulation time per Tick of wall
	// time, which is what the interactive daemon runs.
	RealTime Mode = iota
	// Accelerated advances as fast as the loop can go, still stepping
	// by Tick. Used for scenario replay and batch runs.
	Accelerated
)

// TimeController owns simulation time for one station session. Every
// refresh tick it advances by Tick and notifies listeners in
// registration order; the engine tick is driven from such a listener so
// simulation state only ever moves on controller ticks.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time

	listeners []func(time.Time)
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewTimeController constructs a controller positioned at start.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		stop:        make(chan struct{}),
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime jumps simulation time, used when restoring a recorded
// session. Listeners are not notified; the next tick resumes from the
// new position.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// AddListener registers a callback invoked on every tick with the new
// simulation time. Listeners must be registered before Start.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the controller in its own goroutine for the given
// simulated duration (zero means forever) and returns a channel closed
// when it finishes. RealTime paces ticks against the wall clock;
// Accelerated steps back to back.
func (tc *TimeController) Start(duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		simTime := tc.currentTime
		tc.mu.Unlock()

		var ticker *time.Ticker
		if tc.Mode == RealTime {
			ticker = time.NewTicker(tc.Tick)
			defer ticker.Stop()
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}
			if ticker != nil {
				select {
				case <-ticker.C:
				case <-tc.stop:
					return
				}
			} else {
				select {
				case <-tc.stop:
					return
				default:
				}
			}

			simTime = simTime.Add(tc.Tick)
			elapsed += tc.Tick

			tc.mu.Lock()
			tc.currentTime = simTime
			tc.mu.Unlock()

			for _, fn := range tc.listeners {
				fn(simTime)
			}
		}
	}()
	return done
}

// Stop ends an indefinite run. The done channel returned by Start is
// closed once the loop observes the stop. Safe to call more than once.
func (tc *TimeController) Stop() {
	tc.stopOnce.Do(func() { close(tc.stop) })
}
