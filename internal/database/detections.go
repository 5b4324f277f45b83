package database

import (
	"database/sql"
	"fmt"
)

// SaveDetection replaces the detection results of a transcript.
func (db *DB) SaveDetection(stats TranscriptStats, detections []Detection) error {
	return db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM detections WHERE transcript_id = ?", stats.TranscriptID); err != nil {
			return err
		}
		stmt, err := tx.Prepare(
			`INSERT INTO detections (transcript_id, phrase, exact_count, fuzzy_count, semantic_count)
			VALUES (?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range detections {
			if d.Total() == 0 {
				continue
			}
			if _, err := stmt.Exec(stats.TranscriptID, d.Phrase, d.Exact, d.Fuzzy, d.Semantic); err != nil {
				return fmt.Errorf("inserting detection %q: %w", d.Phrase, err)
			}
		}

		_, err = tx.Exec(
			`INSERT OR REPLACE INTO transcript_stats
			(transcript_id, token_count, total_count, semantic_available, error, detected_at)
			VALUES (?, ?, ?, ?, ?, datetime('now'))`,
			stats.TranscriptID, stats.TokenCount, stats.TotalCount, boolInt(stats.SemanticAvailable), stats.Error,
		)
		return err
	})
}

// GetDetections returns the stored detections of a transcript ordered by
// phrase.
func (db *DB) GetDetections(transcriptID int64) ([]Detection, error) {
	rows, err := db.conn.Query(
		`SELECT phrase, exact_count, fuzzy_count, semantic_count
		FROM detections WHERE transcript_id = ? ORDER BY phrase`, transcriptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.Phrase, &d.Exact, &d.Fuzzy, &d.Semantic); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetTranscriptStats returns the stats of a transcript, or nil.
func (db *DB) GetTranscriptStats(transcriptID int64) (*TranscriptStats, error) {
	rows, err := db.conn.Query(
		`SELECT transcript_id, token_count, total_count, semantic_available, error, detected_at
		FROM transcript_stats WHERE transcript_id = ?`, transcriptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var s TranscriptStats
	var available int
	if err := rows.Scan(&s.TranscriptID, &s.TokenCount, &s.TotalCount, &available, &s.Error, &s.DetectedAt); err != nil {
		return nil, err
	}
	s.SemanticAvailable = available != 0
	return &s, nil
}

// GetScoredTranscripts returns every detected transcript with its combined
// counts per phrase, ordered by transcript ID.
func (db *DB) GetScoredTranscripts() ([]ScoredTranscript, error) {
	rows, err := db.conn.Query(
		"SELECT " + prefixed("t.", transcriptColumns) + `, s.token_count, s.semantic_available
		FROM transcripts t JOIN transcript_stats s ON s.transcript_id = t.id
		ORDER BY t.id`,
	)
	if err != nil {
		return nil, err
	}

	var scored []ScoredTranscript
	index := make(map[int64]int)
	for rows.Next() {
		var st ScoredTranscript
		var fetched, available int
		if err := rows.Scan(&st.ID, &st.URL, &st.VideoID, &st.Organization, &st.Speaker, &st.Label,
			&st.PublishedDate, &st.Text, &fetched, &st.Source, &st.CollectedAt,
			&st.TokenCount, &available); err != nil {
			rows.Close()
			return nil, err
		}
		st.TextFetched = fetched != 0
		st.SemanticAvailable = available != 0
		st.Counts = make(map[string]int)
		index[st.ID] = len(scored)
		scored = append(scored, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	drows, err := db.conn.Query(
		"SELECT transcript_id, phrase, exact_count + fuzzy_count + semantic_count FROM detections",
	)
	if err != nil {
		return nil, err
	}
	defer drows.Close()
	for drows.Next() {
		var (
			id     int64
			phrase string
			count  int
		)
		if err := drows.Scan(&id, &phrase, &count); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			scored[i].Counts[phrase] = count
		}
	}
	return scored, drows.Err()
}

// GetPhraseTotals returns the combined count of every detected phrase per
// organization.
func (db *DB) GetPhraseTotals() ([]PhraseTotal, error) {
	rows, err := db.conn.Query(
		`SELECT t.organization, d.phrase, SUM(d.exact_count + d.fuzzy_count + d.semantic_count)
		FROM detections d JOIN transcripts t ON t.id = d.transcript_id
		GROUP BY t.organization, d.phrase
		ORDER BY t.organization, d.phrase`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhraseTotal
	for rows.Next() {
		var pt PhraseTotal
		if err := rows.Scan(&pt.Organization, &pt.Phrase, &pt.Count); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
