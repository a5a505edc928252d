// Rfsim runs a scenario headless for a fixed simulated duration and
// prints the sweep summary per tick. Useful for smoke-testing a
// scenario file before pointing the daemon at it.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/signalsfoundry/groundstation-simulator/core"
	"github.com/signalsfoundry/groundstation-simulator/timectrl"
)

func main() {
	var (
		scenarioPath = pflag.StringP("scenario", "s", "configs/scenario.yaml", "Path to a YAML scenario file")
		duration     = pflag.Duration("duration", 60*time.Second, "Total simulated duration")
		tick         = pflag.Duration("tick", time.Second, "Tick interval")
		autoTrack    = pflag.Bool("autotrack", true, "Engage auto-track at startup")
		markers      = pflag.Bool("markers", true, "Enable peak markers")
	)
	pflag.Parse()

	f, err := os.Open(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open scenario: %v\n", err)
		os.Exit(1)
	}
	scenario, err := core.LoadScenario(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load scenario: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scenario %q: %d signal sources (%s)\n",
		scenario.Name, len(scenario.SourceIDs), strings.Join(scenario.SourceIDs, ", "))

	engine := core.NewSimulationEngine(
		scenario.Chain,
		core.DefaultAnalyzerConfig(),
		core.DefaultTrackerConfig(),
		core.DefaultAlarmPollInterval,
	)
	if *autoTrack {
		engine.Tracker().EnableAutoTrack()
	}
	if *markers {
		engine.Analyzer().ToggleMarkers()
	}

	tc := timectrl.NewTimeController(time.Now().UTC(), *tick, timectrl.Accelerated)
	tc.AddListener(func(simTime time.Time) {
		snap := engine.Tick(*tick, scenario.Env.SignalsAt(simTime))

		floor := "n/a"
		if snap.BaselineFloorDBm != nil {
			floor = fmt.Sprintf("%.1f dBm", *snap.BaselineFloorDBm)
		}
		fmt.Printf("[%s] center=%s span=%s rbw=%s floor=%s lock=%s",
			simTime.Format(time.RFC3339),
			siHz(snap.CenterFrequencyHz),
			siHz(snap.SpanHz),
			siHz(snap.RBWHz),
			floor,
			snap.Tracking.LockState,
		)
		if snap.Tracking.LockedSourceID != "" {
			fmt.Printf(" source=%s", snap.Tracking.LockedSourceID)
		}
		fmt.Println()

		for i, m := range snap.Markers {
			fmt.Printf("  M%d %s @ %.1f dBm\n", i+1, siHz(m.FrequencyHz), m.PowerDBm)
		}
		if !snap.Alarms.Stable {
			for _, a := range snap.Alarms.Alarms {
				fmt.Printf("  ! %s: %s\n", a.Severity, a.Message)
			}
		}
	})

	<-tc.Start(*duration)
	fmt.Printf("Done: %s ticks simulated.\n", humanize.Comma(int64(*duration / *tick)))
}

func siHz(hz float64) string {
	value, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%.4g %sHz", value, suffix)
}
