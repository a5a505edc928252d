package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Severity of an alarm condition. Success/off conditions are filtered
// before aggregation and never appear here.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// rank orders severities for worst-case aggregation.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Alarm is a single active condition reported by a piece of equipment
// or by the analyzer.
type Alarm struct {
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	AssetID        string   `json:"assetID"`
	EquipmentType  string   `json:"equipmentType"`
	EquipmentIndex int      `json:"equipmentIndex"`
}

// AlarmSource is anything the aggregator can poll for active alarms.
type AlarmSource interface {
	Alarms() []Alarm
}

// AlarmState is the aggregated result shown downstream: every alarm of
// the single highest severity present, or a stable marker when clear.
type AlarmState struct {
	Stable   bool     `json:"stable"`
	Severity Severity `json:"severity,omitempty"`
	Alarms   []Alarm  `json:"alarms,omitempty"`
}

// DefaultAlarmPollInterval is how often sources are polled.
const DefaultAlarmPollInterval = time.Second

// AlarmAggregator polls its sources on a fixed interval, keeps only the
// worst-severity alarms, and reports a change only when the content of
// the filtered set actually differs from the previous poll.
type AlarmAggregator struct {
	sources  []AlarmSource
	interval time.Duration

	elapsed  time.Duration
	lastHash uint64
	current  AlarmState
}

// NewAlarmAggregator builds an aggregator over the given sources.
func NewAlarmAggregator(interval time.Duration, sources ...AlarmSource) *AlarmAggregator {
	if interval <= 0 {
		interval = DefaultAlarmPollInterval
	}
	// Seed the hash with the stable state so a clean first poll is not
	// reported as a change.
	initial := AlarmState{Stable: true}
	return &AlarmAggregator{
		sources:  sources,
		interval: interval,
		current:  initial,
		lastHash: hashAlarmState(initial),
	}
}

// AddSource registers another source to poll.
func (ag *AlarmAggregator) AddSource(src AlarmSource) {
	ag.sources = append(ag.sources, src)
}

// Current returns the last aggregated state.
func (ag *AlarmAggregator) Current() AlarmState { return ag.current }

// Tick accumulates tick time and polls once the interval has elapsed.
// The returned bool is true only when the aggregated set changed.
func (ag *AlarmAggregator) Tick(dt time.Duration) (AlarmState, bool) {
	ag.elapsed += dt
	if ag.elapsed < ag.interval {
		return ag.current, false
	}
	ag.elapsed = 0
	return ag.Poll()
}

// Poll gathers alarms from every source immediately, aggregates by
// worst case, and compares the content hash against the previous poll.
func (ag *AlarmAggregator) Poll() (AlarmState, bool) {
	var all []Alarm
	for _, src := range ag.sources {
		all = append(all, src.Alarms()...)
	}

	state := aggregate(all)
	hash := hashAlarmState(state)
	changed := hash != ag.lastHash
	ag.lastHash = hash
	ag.current = state
	return state, changed
}

// aggregate keeps every alarm of the single highest severity present.
func aggregate(all []Alarm) AlarmState {
	worst := Severity("")
	for _, a := range all {
		if a.Severity.rank() > worst.rank() {
			worst = a.Severity
		}
	}
	if worst.rank() == 0 {
		return AlarmState{Stable: true}
	}

	var kept []Alarm
	for _, a := range all {
		if a.Severity == worst {
			kept = append(kept, a)
		}
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].AssetID != kept[j].AssetID {
			return kept[i].AssetID < kept[j].AssetID
		}
		return kept[i].Message < kept[j].Message
	})
	return AlarmState{Severity: worst, Alarms: kept}
}

// hashAlarmState produces a content hash of the filtered set so the
// aggregator can deduplicate emissions across polls.
func hashAlarmState(state AlarmState) uint64 {
	h := xxhash.New()
	if state.Stable {
		_, _ = h.WriteString("stable")
		return h.Sum64()
	}
	_, _ = h.WriteString(string(state.Severity))
	for _, a := range state.Alarms {
		_, _ = h.WriteString(fmt.Sprintf("|%s/%s/%d/%s/%s",
			a.AssetID, a.EquipmentType, a.EquipmentIndex, a.Severity, a.Message))
	}
	return h.Sum64()
}
