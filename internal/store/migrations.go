package store

import (
	"fmt"
	"strconv"
)

// migrations are applied in order; index i brings the schema to version i+1.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS leads (
		id              TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL,
		email           TEXT NOT NULL,
		name            TEXT NOT NULL DEFAULT '',
		company         TEXT NOT NULL DEFAULT '',
		industry        TEXT NOT NULL DEFAULT '',
		pain_score      INTEGER NOT NULL DEFAULT 0,
		estimated_value REAL NOT NULL DEFAULT 0,
		report          TEXT NOT NULL,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_created ON leads(created_at);
	CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id);

	CREATE TABLE IF NOT EXISTS dead_letters (
		id            TEXT PRIMARY KEY,
		job_type      TEXT NOT NULL,
		payload       TEXT NOT NULL,
		error         TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		retry_count   INTEGER NOT NULL DEFAULT 0,
		next_retry_at INTEGER,
		resolved_at   INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_dlq_unresolved ON dead_letters(next_retry_at) WHERE resolved_at IS NULL;`,

	// CRM identifiers are written back once the background sync succeeds.
	`ALTER TABLE leads ADD COLUMN crm_contact_id TEXT;
	ALTER TABLE leads ADD COLUMN crm_deal_id TEXT;`,
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return err
	}
	for v := s.schemaVersion(); v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("version %d: %w", v+1, err)
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', ?)`, strconv.Itoa(v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("version %d: %w", v+1, err)
		}
	}
	return nil
}

// schemaVersion is 0 for a fresh database.
func (s *Store) schemaVersion() int {
	var raw string
	if err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw); err != nil {
		return 0
	}
	v, _ := strconv.Atoi(raw)
	return v
}
