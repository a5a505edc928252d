package recorder

const initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    scenario   TEXT NOT NULL,
    config     TEXT
);

CREATE TABLE IF NOT EXISTS sweeps (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES sessions(id),
    tick_index  INTEGER NOT NULL,
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    snapshot    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alarm_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  INTEGER NOT NULL REFERENCES sessions(id),
    recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    severity    TEXT NOT NULL,
    state       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sweeps_session ON sweeps(session_id, tick_index);
CREATE INDEX IF NOT EXISTS idx_alarm_events_session ON alarm_events(session_id);
`

const (
	insertSessionSQL = `
INSERT INTO sessions (scenario, config)
VALUES (?, ?)`

	selectSessionsSQL = `
SELECT id, started_at, scenario, config
FROM sessions
ORDER BY id`

	insertSweepSQL = `
INSERT INTO sweeps (session_id, tick_index, snapshot)
VALUES (?, ?, ?)`

	selectLatestSweepSQL = `
SELECT snapshot, recorded_at
FROM sweeps
WHERE session_id = ?
ORDER BY tick_index DESC, id DESC
LIMIT 1`

	insertAlarmEventSQL = `
INSERT INTO alarm_events (session_id, severity, state)
VALUES (?, ?, ?)`

	selectAlarmEventsSQL = `
SELECT state
FROM alarm_events
WHERE session_id = ?
ORDER BY id`
)
