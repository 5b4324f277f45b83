package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/TobiSchelling/ClicheCounter/internal/tenure"
)

const dateLayout = "2006-01-02"

// ReplaceTenures replaces all stored tenures.
func (db *DB) ReplaceTenures(tenures []tenure.Tenure) error {
	return db.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM tenures"); err != nil {
			return err
		}
		stmt, err := tx.Prepare(
			"INSERT INTO tenures (organization, speaker, start_date, end_date) VALUES (?, ?, ?, ?)",
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, tn := range tenures {
			var end *string
			if tn.End != nil {
				s := tn.End.Format(dateLayout)
				end = &s
			}
			if _, err := stmt.Exec(tn.Organization, tn.Speaker, tn.Start.Format(dateLayout), end); err != nil {
				return fmt.Errorf("inserting tenure %s/%s: %w", tn.Organization, tn.Speaker, err)
			}
		}
		return nil
	})
}

// GetTenures returns every stored tenure ordered by organization and start.
func (db *DB) GetTenures() ([]tenure.Tenure, error) {
	rows, err := db.conn.Query(
		"SELECT organization, speaker, start_date, end_date FROM tenures ORDER BY organization, start_date",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenure.Tenure
	for rows.Next() {
		var (
			tn         tenure.Tenure
			start      string
			end        *string
			parseError error
		)
		if err := rows.Scan(&tn.Organization, &tn.Speaker, &start, &end); err != nil {
			return nil, err
		}
		if tn.Start, parseError = time.Parse(dateLayout, start); parseError != nil {
			return nil, fmt.Errorf("tenure %s/%s: %w", tn.Organization, tn.Speaker, parseError)
		}
		if end != nil && *end != "" {
			e, err := time.Parse(dateLayout, *end)
			if err != nil {
				return nil, fmt.Errorf("tenure %s/%s: %w", tn.Organization, tn.Speaker, err)
			}
			tn.End = &e
		}
		out = append(out, tn)
	}
	return out, rows.Err()
}
