package core

import (
	"testing"
	"time"
)

func signalFrom(sourceID string, azDeg, elDeg, powerDBm float64) RfSignal {
	return RfSignal{
		ID:          sourceID + "-carrier",
		FrequencyHz: 1.2e9,
		BandwidthHz: 10e6,
		PowerDBm:    powerDBm,
		Origin: SignalOrigin{
			SourceID:     sourceID,
			AzimuthDeg:   azDeg,
			ElevationDeg: elDeg,
		},
	}
}

func TestTrackerAcquiresAndLocks(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 203.5, 38.2)
	tr.EnableAutoTrack()
	if tr.State() != LockAcquiring {
		t.Fatalf("state after enable = %v, want acquiring", tr.State())
	}

	sig := signalFrom("bird-1", 204.0, 38.0, -90)
	tr.Tick(time.Second, []RfSignal{sig})

	if tr.State() != LockLocked {
		t.Fatalf("state = %v, want locked", tr.State())
	}
	if tr.LockedSourceID() != "bird-1" {
		t.Fatalf("locked source = %q, want bird-1", tr.LockedSourceID())
	}
	// Pointing snaps onto the acquired target.
	az, el := tr.Pointing()
	if az != 204.0 || el != 38.0 {
		t.Fatalf("pointing = %v/%v, want 204/38", az, el)
	}
}

func TestTrackerFailsAfterAcquisitionWindow(t *testing.T) {
	cfg := DefaultTrackerConfig()
	cfg.AcquisitionWindow = 5 * time.Second
	tr := NewTracker(cfg, 203.5, 38.2)
	tr.EnableAutoTrack()

	for i := 0; i < 4; i++ {
		tr.Tick(time.Second, nil)
		if tr.State() != LockAcquiring {
			t.Fatalf("tick %d: state = %v, want still acquiring", i, tr.State())
		}
	}
	tr.Tick(time.Second, nil)
	if tr.State() != LockFailed {
		t.Fatalf("state = %v, want failed once the window elapses", tr.State())
	}

	// Re-enable retries with a fresh window.
	tr.EnableAutoTrack()
	if tr.State() != LockAcquiring {
		t.Fatalf("state after retry = %v, want acquiring", tr.State())
	}
}

func TestTrackerHonorsExplicitZeroThreshold(t *testing.T) {
	// 0 dBm is a legal threshold, not a request for the default. A
	// carrier well above the -120 default but below 0 must be ignored.
	cfg := DefaultTrackerConfig()
	cfg.AcquisitionThresholdDBm = 0
	tr := NewTracker(cfg, 180, 45)
	tr.EnableAutoTrack()

	tr.Tick(time.Second, []RfSignal{signalFrom("bird-1", 180, 45, -50)})
	if tr.State() != LockAcquiring {
		t.Fatalf("state = %v, want acquiring: -50 dBm is under a 0 dBm threshold", tr.State())
	}

	tr.Tick(time.Second, []RfSignal{signalFrom("bird-1", 180, 45, 3)})
	if tr.State() != LockLocked {
		t.Fatalf("state = %v, want locked above the explicit threshold", tr.State())
	}
}

func TestTrackerIgnoresCandidatesOutsideTolerance(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 203.5, 38.2)
	tr.EnableAutoTrack()

	far := signalFrom("bird-2", 210.0, 38.2, -60)
	weak := signalFrom("bird-3", 203.5, 38.2, -130)
	tr.Tick(time.Second, []RfSignal{far, weak})

	if tr.State() != LockAcquiring {
		t.Fatalf("state = %v, want acquiring: neither candidate qualifies", tr.State())
	}
}

func TestTrackerPrefersStrongestCandidate(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 180, 45)
	tr.EnableAutoTrack()

	tr.Tick(time.Second, []RfSignal{
		signalFrom("weak", 180.5, 45.0, -100),
		signalFrom("strong", 179.5, 45.5, -80),
	})
	if tr.LockedSourceID() != "strong" {
		t.Fatalf("locked %q, want the strongest candidate", tr.LockedSourceID())
	}
}

func TestManualEditWhileLockedBreaksLockSynchronously(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 180, 45)
	tr.EnableAutoTrack()
	tr.Tick(time.Second, []RfSignal{signalFrom("bird-1", 180, 45, -80)})
	if tr.State() != LockLocked {
		t.Fatalf("setup: state = %v, want locked", tr.State())
	}

	if err := tr.SetPointing(181, 45); err != nil {
		t.Fatal(err)
	}
	// Same call, not next tick: lock broken, auto-track cleared.
	if tr.State() != LockManual {
		t.Fatalf("state = %v, want manual immediately", tr.State())
	}
	if tr.AutoTrack() {
		t.Fatal("manual edit must clear auto-track")
	}
	if tr.LockedSourceID() != "" {
		t.Fatal("locked source must clear with the lock")
	}
}

func TestLockedTrackerFollowsMovingTarget(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 180, 45)
	tr.EnableAutoTrack()
	tr.Tick(time.Second, []RfSignal{signalFrom("bird-1", 180, 45, -80)})

	tr.Tick(time.Second, []RfSignal{signalFrom("bird-1", 181.2, 45.6, -80)})
	az, el := tr.Pointing()
	if az != 181.2 || el != 45.6 {
		t.Fatalf("pointing = %v/%v, want to follow the target", az, el)
	}
	if tr.State() != LockLocked {
		t.Fatalf("state = %v, want still locked", tr.State())
	}

	// Target gone: back to acquiring, not straight to failed.
	tr.Tick(time.Second, nil)
	if tr.State() != LockAcquiring {
		t.Fatalf("state = %v, want acquiring after losing the target", tr.State())
	}
}

func TestSetPointingValidatesRange(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 180, 45)
	if err := tr.SetPointing(360, 45); err == nil {
		t.Fatal("azimuth 360 must be rejected (wraps to 0)")
	}
	if err := tr.SetPointing(180, 91); err == nil {
		t.Fatal("elevation above 90 must be rejected")
	}
	if err := tr.SetPointing(-1, 45); err == nil {
		t.Fatal("negative azimuth must be rejected")
	}
	az, el := tr.Pointing()
	if az != 180 || el != 45 {
		t.Fatalf("pointing moved after rejected edits: %v/%v", az, el)
	}
}

func TestWithinToleranceWrapsAzimuth(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 359.5, 45)
	if !tr.WithinTolerance(0.5, 45) {
		t.Fatal("0.5 deg is 1 deg from 359.5 across the wrap")
	}
	if tr.WithinTolerance(356.0, 45) {
		t.Fatal("356 deg is 3.5 deg away, outside the 2 deg tolerance")
	}
}

func TestSkewWarningThreshold(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 180, 45)
	if err := tr.SetSkew(45); err != nil {
		t.Fatal(err)
	}
	if tr.SkewWarning() {
		t.Fatal("exactly 45 deg is within limits")
	}
	if err := tr.SetSkew(-46); err != nil {
		t.Fatal(err)
	}
	if !tr.SkewWarning() {
		t.Fatal("-46 deg must warn")
	}
	if err := tr.SetSkew(95); err == nil {
		t.Fatal("skew beyond +/-90 must be rejected")
	}
}

func TestVisibleSignalsGatedByPointingAndLoopback(t *testing.T) {
	tr := NewTracker(DefaultTrackerConfig(), 180, 45)

	in := signalFrom("bird-1", 180.5, 45.0, -80)
	out := signalFrom("bird-2", 200.0, 45.0, -60)

	visible := tr.VisibleSignals([]RfSignal{in, out})
	if len(visible) != 1 || visible[0].Origin.SourceID != "bird-1" {
		t.Fatalf("visible = %+v, want only the in-tolerance signal", visible)
	}

	tr.SetLoopback(true)
	if got := tr.VisibleSignals([]RfSignal{in, out}); len(got) != 0 {
		t.Fatalf("loopback leaves %d external signals visible, want none", len(got))
	}
}
