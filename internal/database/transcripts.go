package database

import (
	"database/sql"
	"strings"
)

const transcriptColumns = `id, url, video_id, organization, speaker, label, published_date,
	text, text_fetched, source, collected_at`

// InsertTranscript inserts a transcript. Returns the ID on success, 0 if
// a transcript with the same URL exists.
func (db *DB) InsertTranscript(t Transcript) (int64, error) {
	if t.Source == "" {
		t.Source = SourceCSV
	}
	result, err := db.conn.Exec(
		`INSERT INTO transcripts (url, video_id, organization, speaker, label, published_date, text, text_fetched, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING`,
		t.URL, t.VideoID, t.Organization, t.Speaker, t.Label, t.PublishedDate, t.Text,
		boolInt(t.Text != nil), t.Source,
	)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return 0, err
	}
	return result.LastInsertId()
}

// GetTranscripts returns every transcript, optionally limited to one
// organization, ordered by organization and publication date.
func (db *DB) GetTranscripts(organization string) ([]Transcript, error) {
	query := "SELECT " + transcriptColumns + " FROM transcripts"
	var args []any
	if organization != "" {
		query += " WHERE organization = ?"
		args = append(args, organization)
	}
	query += " ORDER BY organization, published_date, id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscripts(rows)
}

// GetTranscriptsNeedingFetch returns transcripts without text that have
// not been fetched yet.
func (db *DB) GetTranscriptsNeedingFetch() ([]Transcript, error) {
	rows, err := db.conn.Query(
		"SELECT " + transcriptColumns + ` FROM transcripts
		WHERE text IS NULL AND text_fetched = 0
		ORDER BY collected_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscripts(rows)
}

// GetTranscriptsForDetection returns transcripts with text, including
// empty text, which detects as a zero-occurrence document. Unless all is
// set, transcripts already detected are left out.
func (db *DB) GetTranscriptsForDetection(all bool) ([]Transcript, error) {
	query := "SELECT " + prefixed("t.", transcriptColumns) + ` FROM transcripts t
		LEFT JOIN transcript_stats s ON s.transcript_id = t.id
		WHERE t.text IS NOT NULL`
	if !all {
		query += " AND s.transcript_id IS NULL"
	}
	query += " ORDER BY t.id"

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTranscripts(rows)
}

// UpdateTranscriptText stores fetched text.
func (db *DB) UpdateTranscriptText(id int64, text string) error {
	_, err := db.conn.Exec(
		"UPDATE transcripts SET text = ?, text_fetched = 1 WHERE id = ?",
		text, id,
	)
	return err
}

// MarkFetchAttempted marks that we tried to fetch the text.
func (db *DB) MarkFetchAttempted(id int64) error {
	_, err := db.conn.Exec("UPDATE transcripts SET text_fetched = 1 WHERE id = ?", id)
	return err
}

// GetTranscriptByID returns a single transcript, or nil if missing.
func (db *DB) GetTranscriptByID(id int64) (*Transcript, error) {
	row := db.conn.QueryRow("SELECT "+transcriptColumns+" FROM transcripts WHERE id = ?", id)
	t, err := scanTranscript(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetOrganizations returns the distinct organizations, sorted.
func (db *DB) GetOrganizations() ([]string, error) {
	rows, err := db.conn.Query("SELECT DISTINCT organization FROM transcripts ORDER BY organization")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscripts(rows *sql.Rows) ([]Transcript, error) {
	var out []Transcript
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTranscript(s scanner) (*Transcript, error) {
	var t Transcript
	var fetched int
	if err := s.Scan(&t.ID, &t.URL, &t.VideoID, &t.Organization, &t.Speaker, &t.Label,
		&t.PublishedDate, &t.Text, &fetched, &t.Source, &t.CollectedAt); err != nil {
		return nil, err
	}
	t.TextFetched = fetched != 0
	return &t, nil
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
