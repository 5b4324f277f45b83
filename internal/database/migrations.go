package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    video_id TEXT,
    organization TEXT NOT NULL,
    speaker TEXT,
    label TEXT,
    published_date TEXT,
    text TEXT,
    text_fetched INTEGER DEFAULT 0,
    source TEXT NOT NULL DEFAULT 'csv',
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tenures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    organization TEXT NOT NULL,
    speaker TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT
);

CREATE TABLE IF NOT EXISTS detections (
    transcript_id INTEGER NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
    phrase TEXT NOT NULL,
    exact_count INTEGER NOT NULL DEFAULT 0,
    fuzzy_count INTEGER NOT NULL DEFAULT 0,
    semantic_count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (transcript_id, phrase)
);

CREATE TABLE IF NOT EXISTS transcript_stats (
    transcript_id INTEGER PRIMARY KEY REFERENCES transcripts(id) ON DELETE CASCADE,
    token_count INTEGER NOT NULL DEFAULT 0,
    total_count INTEGER NOT NULL DEFAULT 0,
    semantic_available INTEGER NOT NULL DEFAULT 1,
    error TEXT,
    detected_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transcripts_url ON transcripts(url);
CREATE INDEX IF NOT EXISTS idx_tenures_org ON tenures(organization, start_date);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "run tracking and stored reports",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL DEFAULT (datetime('now')),
    finished_at TEXT,
    documents INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'running'
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES runs(id),
    title TEXT NOT NULL,
    body_markdown TEXT NOT NULL,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_transcripts_org ON transcripts(organization);
CREATE INDEX IF NOT EXISTS idx_reports_run ON reports(run_id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
