// Package store persists operator-owned settings that have no vendor
// representation, currently the per-zone controller targets.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database holding daemon-owned state.
type DB struct {
	db *sql.DB
}

// Open opens the database and initializes the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS zone_targets (
			zone_id INTEGER PRIMARY KEY,
			target REAL NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create zone_targets table: %w", err)
	}
	return nil
}

// Target returns the stored target for a zone, if any.
func (d *DB) Target(zoneID int) (float64, bool, error) {
	var target float64
	err := d.db.QueryRow(`SELECT target FROM zone_targets WHERE zone_id = ?`, zoneID).Scan(&target)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return target, true, nil
}

// SetTarget stores the target for a zone, replacing any previous value.
func (d *DB) SetTarget(zoneID int, target float64) error {
	now := time.Now().UTC().Unix()
	_, err := d.db.Exec(`
		INSERT INTO zone_targets (zone_id, target, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(zone_id) DO UPDATE SET
			target = excluded.target,
			updated_at = excluded.updated_at
	`, zoneID, target, now)
	return err
}

// DeleteTarget removes the stored target for a zone.
func (d *DB) DeleteTarget(zoneID int) error {
	_, err := d.db.Exec(`DELETE FROM zone_targets WHERE zone_id = ?`, zoneID)
	return err
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}
