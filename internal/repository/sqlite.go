package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

var _ Repository = (*SQLiteDB)(nil)

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting across pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS clinics (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS updates (
			id TEXT PRIMARY KEY,
			clinic_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			patient_count INTEGER NOT NULL,
			avg_fever REAL NOT NULL,
			side_effects TEXT NOT NULL DEFAULT '[]',
			notes TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (clinic_id) REFERENCES clinics(id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			clinic_id TEXT NOT NULL,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			ts INTEGER NOT NULL,
			resolved INTEGER NOT NULL DEFAULT 0,
			resolved_at INTEGER,
			FOREIGN KEY (clinic_id) REFERENCES clinics(id)
		);

		CREATE INDEX IF NOT EXISTS idx_updates_clinic_ts ON updates(clinic_id, ts);
		CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open ON alerts(clinic_id, type) WHERE resolved = 0;
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Times are stored as UTC unix nanoseconds so ORDER BY is chronological.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
