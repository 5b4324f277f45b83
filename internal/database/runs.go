package database

import (
	"database/sql"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunFailed   = "failed"
)

// StartRun records the start of a pipeline run.
func (db *DB) StartRun(id string) error {
	_, err := db.conn.Exec("INSERT INTO runs (id, status) VALUES (?, ?)", id, RunRunning)
	return err
}

// FinishRun records the outcome of a run.
func (db *DB) FinishRun(id string, documents, failed int, status string) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET finished_at = datetime('now'), documents = ?, failed = ?, status = ?
		WHERE id = ?`,
		documents, failed, status, id,
	)
	return err
}

// GetRuns returns all runs, newest first.
func (db *DB) GetRuns() ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, started_at, finished_at, documents, failed, status
		FROM runs ORDER BY started_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Documents, &r.Failed, &r.Status); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertReport stores a report for a run.
func (db *DB) InsertReport(runID, title, bodyMarkdown string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO reports (run_id, title, body_markdown) VALUES (?, ?, ?)",
		runID, title, bodyMarkdown,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetReport returns a report by ID, or nil.
func (db *DB) GetReport(id int64) (*Report, error) {
	row := db.conn.QueryRow(
		"SELECT id, run_id, title, body_markdown, generated_at FROM reports WHERE id = ?", id,
	)
	var r Report
	if err := row.Scan(&r.ID, &r.RunID, &r.Title, &r.BodyMarkdown, &r.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetLatestReport returns the most recent report, or nil.
func (db *DB) GetLatestReport() (*Report, error) {
	row := db.conn.QueryRow(
		"SELECT id, run_id, title, body_markdown, generated_at FROM reports ORDER BY id DESC LIMIT 1",
	)
	var r Report
	if err := row.Scan(&r.ID, &r.RunID, &r.Title, &r.BodyMarkdown, &r.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// GetAllReports returns all reports without bodies, newest first.
func (db *DB) GetAllReports() ([]Report, error) {
	rows, err := db.conn.Query(
		"SELECT id, run_id, title, generated_at FROM reports ORDER BY id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.RunID, &r.Title, &r.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM transcripts", &s.Transcripts},
		{"SELECT COUNT(*) FROM transcripts WHERE text IS NOT NULL AND text != ''", &s.WithText},
		{"SELECT COUNT(*) FROM transcript_stats", &s.Detected},
		{"SELECT COUNT(DISTINCT organization) FROM transcripts", &s.Organizations},
		{"SELECT COUNT(*) FROM tenures", &s.Tenures},
		{"SELECT COUNT(*) FROM runs", &s.Runs},
		{"SELECT COUNT(*) FROM reports", &s.Reports},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
