// Package recorder persists simulation sessions to SQLite so a station
// operator can replay a sweep history or rehydrate the analyzer exactly
// where a previous run left off.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/signalsfoundry/groundstation-simulator/core"
)

// Recorder owns one write connection to the session database. The
// connection is opened lazily on first use so constructing a Recorder
// for a disabled config costs nothing.
type Recorder struct {
	dbPath string

	db     *sql.DB
	dbOnce sync.Once
	dbErr  error

	closeOnce sync.Once
	closeErr  error
}

// Session is one recorded run.
type Session struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"startedAt"`
	Scenario  string    `json:"scenario"`
	Config    *string   `json:"config,omitempty"`
}

// New creates a recorder over the given database path. Use ":memory:"
// for a throwaway store.
func New(dbPath string) *Recorder {
	return &Recorder{dbPath: dbPath}
}

func (r *Recorder) getDB() (*sql.DB, error) {
	r.dbOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", r.dbPath))
		if err != nil {
			r.dbErr = fmt.Errorf("opening session database: %w", err)
			return
		}
		if _, err = db.Exec(initSchemaSQL); err != nil {
			_ = db.Close()
			r.dbErr = fmt.Errorf("initializing schema: %w", err)
			return
		}
		r.db = db
	})
	return r.db, r.dbErr
}

// CreateSession inserts a session row and returns its ID. The config
// argument is stored as JSON alongside the scenario name so a replay
// can verify it runs against the same station setup.
func (r *Recorder) CreateSession(ctx context.Context, scenario string, config any) (int64, error) {
	var configData sql.NullString
	if config != nil {
		p, err := json.Marshal(config)
		if err != nil {
			return 0, fmt.Errorf("marshaling config: %w", err)
		}
		configData.Valid = true
		configData.String = string(p)
	}

	db, err := r.getDB()
	if err != nil {
		return 0, err
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, scenario, configData)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	return result.LastInsertId()
}

// Sessions lists all recorded sessions, oldest first.
func (r *Recorder) Sessions(ctx context.Context) (sessions []Session, err error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartedAt, &sess.Scenario, &config); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// StoreSweep persists one tick's snapshot under the session.
func (r *Recorder) StoreSweep(ctx context.Context, sessionID int64, snap core.AnalyzerSnapshot) error {
	db, err := r.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	if _, err = db.ExecContext(ctx, insertSweepSQL, sessionID, snap.TickIndex, string(payload)); err != nil {
		return fmt.Errorf("inserting sweep: %w", err)
	}
	return nil
}

// StoreAlarmState persists one aggregated alarm transition. Callers are
// expected to write only on change; every row is a distinct event.
func (r *Recorder) StoreAlarmState(ctx context.Context, sessionID int64, state core.AlarmState) error {
	db, err := r.getDB()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling alarm state: %w", err)
	}

	severity := string(state.Severity)
	if state.Stable {
		severity = "stable"
	}
	if _, err = db.ExecContext(ctx, insertAlarmEventSQL, sessionID, severity, string(payload)); err != nil {
		return fmt.Errorf("inserting alarm event: %w", err)
	}
	return nil
}

// LatestSweep returns the most recent snapshot stored under a session
// and the wall time it was recorded at, for handing to
// SimulationEngine.Restore and re-seeding the simulation clock.
func (r *Recorder) LatestSweep(ctx context.Context, sessionID int64) (core.AnalyzerSnapshot, time.Time, error) {
	var snap core.AnalyzerSnapshot
	var recordedAt time.Time

	db, err := r.getDB()
	if err != nil {
		return snap, recordedAt, err
	}

	var payload string
	err = db.QueryRowContext(ctx, selectLatestSweepSQL, sessionID).Scan(&payload, &recordedAt)
	if err == sql.ErrNoRows {
		return snap, recordedAt, fmt.Errorf("session %d has no recorded sweeps", sessionID)
	}
	if err != nil {
		return snap, recordedAt, fmt.Errorf("querying latest sweep: %w", err)
	}

	if err = json.Unmarshal([]byte(payload), &snap); err != nil {
		return snap, recordedAt, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return snap, recordedAt, nil
}

// AlarmEvents returns the alarm transitions recorded under a session,
// in insertion order.
func (r *Recorder) AlarmEvents(ctx context.Context, sessionID int64) (events []core.AlarmState, err error) {
	db, err := r.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectAlarmEventsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying alarm events: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var payload string
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning alarm event: %w", err)
		}
		var state core.AlarmState
		if err = json.Unmarshal([]byte(payload), &state); err != nil {
			return nil, fmt.Errorf("unmarshaling alarm event: %w", err)
		}
		events = append(events, state)
	}
	return events, rows.Err()
}

// Close flushes and closes the connection. Safe to call more than once
// and before first use.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		if r.db != nil {
			r.closeErr = r.db.Close()
			r.db = nil
		}
	})
	return r.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
