package database

import (
	"database/sql"
	"fmt"
	"log"
)

func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(conn *sql.DB, version int) error {
	// PRAGMA does not accept bound parameters.
	_, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}

// hasTranscriptsTable reports whether the transcripts table exists. A
// database with the table but user_version 0 predates versioned
// migrations and already matches migration 1.
func hasTranscriptsTable(conn *sql.DB) (bool, error) {
	var n int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'transcripts'",
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking for legacy tables: %w", err)
	}
	return n > 0, nil
}

// migrate applies every migration newer than PRAGMA user_version.
func migrate(conn *sql.DB) error {
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}

	if current == 0 {
		legacy, err := hasTranscriptsTable(conn)
		if err != nil {
			return err
		}
		if legacy {
			log.Printf("Unversioned transcripts database found, treating it as schema version 1")
			if err := setSchemaVersion(conn, 1); err != nil {
				return fmt.Errorf("stamping legacy version: %w", err)
			}
			current = 1
		}
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(conn, m); err != nil {
			return err
		}
		current = m.Version
	}
	return nil
}

// apply runs one migration in a transaction. The version is stamped
// afterwards because modernc sqlite ignores user_version inside a
// transaction; the DDL is idempotent, so a crash in between only re-runs it.
func apply(conn *sql.DB, m Migration) error {
	log.Printf("Applying schema migration %d: %s", m.Version, m.Description)

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	if err := setSchemaVersion(conn, m.Version); err != nil {
		return fmt.Errorf("setting version %d: %w", m.Version, err)
	}
	return nil
}
