// Rfsimd is the ground station RF simulator daemon.
//
// It loads a station scenario, runs the simulation engine on a fixed
// refresh tick, and serves the operator surface over HTTP and
// WebSocket. Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/signalsfoundry/groundstation-simulator/core"
	"github.com/signalsfoundry/groundstation-simulator/internal/config"
	"github.com/signalsfoundry/groundstation-simulator/internal/logging"
	"github.com/signalsfoundry/groundstation-simulator/internal/observability"
	"github.com/signalsfoundry/groundstation-simulator/internal/recorder"
	"github.com/signalsfoundry/groundstation-simulator/internal/server"
	"github.com/signalsfoundry/groundstation-simulator/timectrl"
)

func main() {
	var (
		configPath = pflag.StringP("config", "c", "configs/rfsim.toml", "Path to config TOML")
		bind       = pflag.String("bind", "", "Override server.bind from the config")
		resumeID   = pflag.Int64("resume", 0, "Recorded session ID to resume from the recorder database")
	)
	pflag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil && os.IsNotExist(err) {
		cfg = config.Default()
		err = nil
	}
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		log.Error(ctx, "config load failed", logging.String("path", *configPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *bind != "" {
		cfg.Server.Bind = *bind
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewStationCollector(nil)
	if err != nil {
		log.Error(ctx, "metrics collector init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	scenario, err := loadScenario(cfg.Scenario.Path)
	if err != nil {
		log.Error(ctx, "scenario load failed", logging.String("path", cfg.Scenario.Path), logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "scenario loaded",
		logging.String("name", scenario.Name),
		logging.Int("sources", len(scenario.SourceIDs)))

	analyzerCfg := core.DefaultAnalyzerConfig()
	analyzerCfg.BinCount = cfg.Analyzer.BinCount
	analyzerCfg.Seed = cfg.Analyzer.Seed
	analyzerCfg.PeakExcursionDB = cfg.Analyzer.PeakExcursionDB
	analyzerCfg.JitterDB = cfg.Analyzer.JitterDB

	trackerCfg := core.TrackerConfig{
		PointingToleranceDeg:    cfg.Tracking.ToleranceDeg,
		AcquisitionWindow:       time.Duration(cfg.Tracking.AcquisitionSeconds * float64(time.Second)),
		AcquisitionThresholdDBm: cfg.Tracking.AcquisitionThresholdDB,
	}

	alarmInterval := time.Duration(cfg.Alarms.PollSeconds * float64(time.Second))
	engine := core.NewSimulationEngine(scenario.Chain, analyzerCfg, trackerCfg, alarmInterval)

	var mu sync.Mutex

	tick := time.Duration(cfg.Analyzer.RefreshMillis) * time.Millisecond
	tc := timectrl.NewTimeController(time.Now().UTC(), tick, timectrl.RealTime)

	var rec *recorder.Recorder
	var sessionID int64
	if cfg.Recorder.Enabled {
		rec = recorder.New(cfg.Recorder.Path)
		if *resumeID > 0 {
			snap, recordedAt, err := rec.LatestSweep(ctx, *resumeID)
			if err != nil {
				log.Error(ctx, "session resume failed", logging.Int("session", int(*resumeID)), logging.String("error", err.Error()))
				os.Exit(1)
			}
			if err := engine.Restore(snap); err != nil {
				log.Error(ctx, "snapshot restore failed", logging.String("error", err.Error()))
				os.Exit(1)
			}
			// Rejoin simulated time where the recording left off so the
			// restored pass geometry lines up with the restored sweep.
			tc.SetTime(recordedAt)
			log.Info(ctx, "resumed recorded session",
				logging.Int("session", int(*resumeID)),
				logging.Int("tick", int(snap.TickIndex)),
				logging.String("sim_time", recordedAt.Format(time.RFC3339)))
		}
		sessionID, err = rec.CreateSession(ctx, scenario.Name, cfg)
		if err != nil {
			log.Error(ctx, "recorder session create failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "recording session", logging.Int("session", int(sessionID)), logging.String("path", cfg.Recorder.Path))
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub(collector.SetStreamClients)
	go hub.Run(runCtx)

	engine.RegisterTickListener(func(snap core.AnalyzerSnapshot) {
		hub.BroadcastJSON(snap)
		if rec == nil {
			return
		}
		if err := rec.StoreSweep(ctx, sessionID, snap); err != nil {
			log.Warn(ctx, "sweep record failed", logging.String("error", err.Error()))
		}
		if snap.AlarmChanged {
			if err := rec.StoreAlarmState(ctx, sessionID, snap.Alarms); err != nil {
				log.Warn(ctx, "alarm record failed", logging.String("error", err.Error()))
			}
		}
	})

	tc.AddListener(func(simTime time.Time) {
		signals := scenario.Env.SignalsAt(simTime)
		started := time.Now()
		mu.Lock()
		snap := engine.Tick(tick, signals)
		mu.Unlock()
		collector.ObserveTick(snap, len(signals), time.Since(started))
	})

	srv := server.New(server.Options{
		Engine:   engine,
		Mu:       &mu,
		Clock:    tc,
		Signals:  func() []core.RfSignal { return scenario.Env.SignalsAt(tc.Now()) },
		Hub:      hub,
		Metrics:  collector,
		Log:      log,
		Scenario: scenario.Name,
		Bind:     cfg.Server.Bind,
	})

	done := tc.Start(0)
	log.Info(ctx, "simulation running",
		logging.String("bind", cfg.Server.Bind),
		logging.String("tick", tick.String()))

	if err := srv.Run(runCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "server failed", logging.String("error", err.Error()))
	}

	tc.Stop()
	<-done

	if rec != nil {
		if err := rec.Close(); err != nil {
			log.Warn(ctx, "recorder close failed", logging.String("error", err.Error()))
		}
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func loadScenario(path string) (*core.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadScenario(f)
}
