package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-simulator/core"
)

func testRecorder(t *testing.T) *Recorder {
	t.Helper()
	r := New(filepath.Join(t.TempDir(), "sessions.db"))
	t.Cleanup(func() {
		if err := r.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return r
}

func testSnapshot(tick uint64) core.AnalyzerSnapshot {
	chain := core.DefaultChain()
	for _, kind := range []core.StageKind{core.StageLNB, core.StageBUC, core.StageHPA} {
		chain.SetPowered(kind, true)
	}
	cfg := core.DefaultAnalyzerConfig()
	cfg.JitterDB = 0
	engine := core.NewSimulationEngine(chain, cfg, core.DefaultTrackerConfig(), time.Second)

	var snap core.AnalyzerSnapshot
	for i := uint64(0); i < tick; i++ {
		snap = engine.Tick(100*time.Millisecond, nil)
	}
	return snap
}

func TestCreateSessionAndList(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	id1, err := r.CreateSession(ctx, "clarke-belt", map[string]int{"bins": 501})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := r.CreateSession(ctx, "loopback-bench", nil)
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Fatalf("session IDs not monotonic: %d then %d", id1, id2)
	}

	sessions, err := r.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("listed %d sessions, want 2", len(sessions))
	}
	if sessions[0].Scenario != "clarke-belt" || sessions[0].Config == nil {
		t.Fatalf("first session = %+v", sessions[0])
	}
	if sessions[1].Config != nil {
		t.Fatal("nil config must stay nil")
	}
}

func TestLatestSweepRoundTrips(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	id, err := r.CreateSession(ctx, "clarke-belt", nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, tick := range []uint64{1, 2, 3} {
		if err := r.StoreSweep(ctx, id, testSnapshot(tick)); err != nil {
			t.Fatal(err)
		}
	}

	snap, recordedAt, err := r.LatestSweep(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.TickIndex != 3 {
		t.Fatalf("latest tick index = %d, want 3", snap.TickIndex)
	}
	if recordedAt.IsZero() {
		t.Fatal("latest sweep must carry its recording time")
	}
	if d := time.Since(recordedAt); d < 0 || d > time.Minute {
		t.Fatalf("recorded_at %v is not recent", recordedAt)
	}
	if len(snap.Traces[0].Bins) == 0 {
		t.Fatal("restored snapshot lost its sweep bins")
	}
	if snap.CenterFrequencyHz != 1.2e9 {
		t.Fatalf("center = %v", snap.CenterFrequencyHz)
	}
}

func TestLatestSweepOnEmptySession(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	id, err := r.CreateSession(ctx, "clarke-belt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := r.LatestSweep(ctx, id); err == nil {
		t.Fatal("expected an error for a session with no sweeps")
	}
}

func TestAlarmEventsKeepInsertionOrder(t *testing.T) {
	r := testRecorder(t)
	ctx := context.Background()

	id, err := r.CreateSession(ctx, "clarke-belt", nil)
	if err != nil {
		t.Fatal(err)
	}

	states := []core.AlarmState{
		{Stable: true},
		{Severity: core.SeverityError, Alarms: []core.Alarm{{
			Severity: core.SeverityError,
			Message:  "receive chain broken: lnb unpowered",
			AssetID:  "chain",
		}}},
		{Stable: true},
	}
	for _, st := range states {
		if err := r.StoreAlarmState(ctx, id, st); err != nil {
			t.Fatal(err)
		}
	}

	events, err := r.AlarmEvents(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("recorded %d events, want 3", len(events))
	}
	if !events[0].Stable || events[2].Stable != true {
		t.Fatal("stable markers lost")
	}
	if events[1].Severity != core.SeverityError || len(events[1].Alarms) != 1 {
		t.Fatalf("middle event = %+v", events[1])
	}
}

func TestCloseBeforeUse(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "unused.db"))
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}
