package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/signalsfoundry/groundstation-simulator/core"
	"github.com/signalsfoundry/groundstation-simulator/internal/logging"
)

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.opts.Mu.Lock()
	snap := s.opts.Engine.Snapshot()
	s.opts.Mu.Unlock()

	resp := map[string]any{
		"name":           "rfsimd",
		"scenario":       s.opts.Scenario,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"tick_index":     snap.TickIndex,
		"lock_state":     snap.Tracking.LockState,
		"alarm_stable":   snap.Alarms.Stable,
	}
	if s.opts.Clock != nil {
		resp["sim_time"] = s.opts.Clock.Now().UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.opts.Mu.Lock()
	snap := s.opts.Engine.Snapshot()
	s.opts.Mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTaps(w http.ResponseWriter, _ *http.Request) {
	s.opts.Mu.Lock()
	snap := s.opts.Engine.Snapshot()
	s.opts.Mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"taps": snap.Taps})
}

// controlRequest is the operator intent envelope. Fields beyond Action
// are read per action; unknown extras are ignored.
type controlRequest struct {
	Action string `json:"action"`

	ValueHz  *float64 `json:"valueHz,omitempty"`
	ValueDBm *float64 `json:"valueDBm,omitempty"`
	MinDBm   *float64 `json:"minDBm,omitempty"`
	MaxDBm   *float64 `json:"maxDBm,omitempty"`

	Trace   int    `json:"trace,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Visible *bool  `json:"visible,omitempty"`

	Tap    string `json:"tap,omitempty"`
	Active *bool  `json:"active,omitempty"`

	Locked string `json:"locked,omitempty"`

	AzimuthDeg   *float64 `json:"azimuthDeg,omitempty"`
	ElevationDeg *float64 `json:"elevationDeg,omitempty"`
	SkewDeg      *float64 `json:"skewDeg,omitempty"`

	Delta int `json:"delta,omitempty"`

	Stage   string `json:"stage,omitempty"`
	Powered *bool  `json:"powered,omitempty"`

	On *bool `json:"on,omitempty"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "control requires POST", http.StatusMethodNotAllowed)
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("malformed control request: %v", err), http.StatusBadRequest)
		return
	}

	ctx, log := logging.WithRequestLogger(r.Context(), s.opts.Log)

	s.opts.Mu.Lock()
	result, err := s.dispatch(req)
	s.opts.Mu.Unlock()

	if err != nil {
		log.Warn(ctx, "control intent rejected",
			logging.String("action", req.Action),
			logging.String("error", err.Error()))
		writeJSON(w, controlErrorCode(err), map[string]any{
			"status": "error",
			"action": req.Action,
			"error":  err.Error(),
		})
		return
	}

	log.Debug(ctx, "control intent applied", logging.String("action", req.Action))
	resp := map[string]any{"status": "ok", "action": req.Action}
	if result != nil {
		resp["result"] = result
	}
	writeJSON(w, http.StatusOK, resp)
}

var errUnknownAction = errors.New("unknown control action")

// dispatch applies one operator intent. Caller holds the engine mutex.
func (s *Server) dispatch(req controlRequest) (any, error) {
	analyzer := s.opts.Engine.Analyzer()
	tracker := s.opts.Engine.Tracker()
	chain := s.opts.Engine.Chain()

	switch req.Action {
	case "set_center_frequency":
		if req.ValueHz == nil {
			return nil, errors.New("set_center_frequency requires valueHz")
		}
		return nil, analyzer.SetCenterFrequencyHz(*req.ValueHz)

	case "set_span":
		if req.ValueHz == nil {
			return nil, errors.New("set_span requires valueHz")
		}
		return nil, analyzer.SetSpanHz(*req.ValueHz)

	case "set_start_frequency":
		if req.ValueHz == nil {
			return nil, errors.New("set_start_frequency requires valueHz")
		}
		return nil, analyzer.SetStartFrequencyHz(*req.ValueHz)

	case "set_stop_frequency":
		if req.ValueHz == nil {
			return nil, errors.New("set_stop_frequency requires valueHz")
		}
		return nil, analyzer.SetStopFrequencyHz(*req.ValueHz)

	case "set_locked_control":
		analyzer.SetLockedControl(core.LockedControl(req.Locked))
		return nil, nil

	case "set_reference_level":
		if req.ValueDBm == nil {
			return nil, errors.New("set_reference_level requires valueDBm")
		}
		return nil, analyzer.SetReferenceLevelDBm(*req.ValueDBm)

	case "set_amplitude_range":
		if req.MinDBm == nil || req.MaxDBm == nil {
			return nil, errors.New("set_amplitude_range requires minDBm and maxDBm")
		}
		return nil, analyzer.SetAmplitudeRangeDBm(*req.MinDBm, *req.MaxDBm)

	case "set_rbw":
		if req.ValueHz == nil {
			return nil, errors.New("set_rbw requires valueHz")
		}
		return nil, analyzer.SetRBWHz(*req.ValueHz)

	case "set_rbw_auto":
		analyzer.SetRBWAuto()
		return nil, nil

	case "set_trace_mode":
		return nil, analyzer.SetTraceMode(req.Trace, core.TraceMode(req.Mode))

	case "set_trace_visible":
		if req.Visible == nil {
			return nil, errors.New("set_trace_visible requires visible")
		}
		return nil, analyzer.SetTraceVisible(req.Trace, *req.Visible)

	case "reset_trace":
		return nil, analyzer.ResetTrace(req.Trace)

	case "cycle_screen_mode":
		return analyzer.CycleScreenMode(), nil

	case "set_primary_tap":
		tap, ok := core.TapPointFromString(req.Tap)
		if !ok {
			return nil, fmt.Errorf("unknown tap point %q", req.Tap)
		}
		return nil, analyzer.SetPrimaryTap(tap)

	case "set_secondary_tap":
		active := req.Active != nil && *req.Active
		tap, ok := core.TapPointFromString(req.Tap)
		if !ok && active {
			return nil, fmt.Errorf("unknown tap point %q", req.Tap)
		}
		return nil, analyzer.SetSecondaryTap(tap, active)

	case "toggle_markers":
		return analyzer.ToggleMarkers(), nil

	case "step_marker":
		analyzer.StepMarker(req.Delta)
		if m, ok := analyzer.ActiveMarker(); ok {
			return m, nil
		}
		return nil, nil

	case "auto_tune":
		var signals []core.RfSignal
		if s.opts.Signals != nil {
			signals = s.opts.Signals()
		}
		if err := analyzer.AutoTune(tracker.VisibleSignals(signals)); err != nil {
			return nil, err
		}
		return map[string]float64{
			"centerFrequencyHz": analyzer.CenterFrequencyHz(),
			"spanHz":            analyzer.SpanHz(),
		}, nil

	case "set_pointing":
		if req.AzimuthDeg == nil || req.ElevationDeg == nil {
			return nil, errors.New("set_pointing requires azimuthDeg and elevationDeg")
		}
		return nil, tracker.SetPointing(*req.AzimuthDeg, *req.ElevationDeg)

	case "set_skew":
		if req.SkewDeg == nil {
			return nil, errors.New("set_skew requires skewDeg")
		}
		return nil, tracker.SetSkew(*req.SkewDeg)

	case "toggle_autotrack":
		return tracker.ToggleAutoTrack(), nil

	case "set_loopback":
		if req.On == nil {
			return nil, errors.New("set_loopback requires on")
		}
		tracker.SetLoopback(*req.On)
		return nil, nil

	case "set_power":
		if req.Powered == nil {
			return nil, errors.New("set_power requires powered")
		}
		kind := core.StageKind(req.Stage)
		if chain.StageByKind(kind) == nil {
			return nil, fmt.Errorf("unknown or absent stage %q", req.Stage)
		}
		chain.SetPowered(kind, *req.Powered)
		return nil, nil
	}

	return nil, fmt.Errorf("%w: %q", errUnknownAction, req.Action)
}

func controlErrorCode(err error) int {
	var oor *core.OutOfRangeError
	switch {
	case errors.Is(err, core.ErrNoSignalFound):
		return http.StatusNotFound
	case errors.As(err, &oor), errors.Is(err, core.ErrTraceIndex):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errUnknownAction):
		return http.StatusBadRequest
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
