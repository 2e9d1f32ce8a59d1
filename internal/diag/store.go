package diag

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists snapshots and tier changes in SQLite
type Store struct {
	conn *sql.DB
}

// OpenStore opens (or creates) the database at path and migrates it
func OpenStore(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer goroutine; keep the pool from opening parallel writers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame INTEGER NOT NULL,
		tier TEXT NOT NULL,
		fps REAL NOT NULL DEFAULT 0,
		objects INTEGER NOT NULL DEFAULT 0,
		pairs INTEGER NOT NULL DEFAULT 0,
		efficiency REAL NOT NULL DEFAULT 0,
		payload BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tier_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		frame INTEGER NOT NULL,
		from_tier TEXT NOT NULL,
		to_tier TEXT NOT NULL,
		fps REAL NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_frame ON snapshots(frame);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertSnapshots writes a batch in one transaction
func (s *Store) InsertSnapshots(batch []Snapshot) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO snapshots (frame, tier, fps, objects, pairs, efficiency, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, snap := range batch {
		payload, err := Encode(snap)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(snap.Frame, snap.Tier, snap.Quality.FPS, snap.Collision.Objects,
			snap.Collision.Pairs, snap.Collision.Efficiency, payload, snap.At.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert snapshot %d: %w", snap.Frame, err)
		}
	}
	return tx.Commit()
}

// InsertTierChanges writes a batch of tier transitions in one transaction
func (s *Store) InsertTierChanges(batch []TierChange) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, c := range batch {
		_, err := tx.Exec(`INSERT INTO tier_changes (frame, from_tier, to_tier, fps, created_at) VALUES (?, ?, ?, ?, ?)`,
			c.Frame, c.From, c.To, c.FPS, c.At.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert tier change: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit snapshots, newest first
func (s *Store) Recent(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.Query(`SELECT payload FROM snapshots ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap, err := Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// TierChanges returns up to limit tier transitions, newest first
func (s *Store) TierChanges(limit int) ([]TierChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.conn.Query(`SELECT frame, from_tier, to_tier, fps, created_at FROM tier_changes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query tier changes: %w", err)
	}
	defer rows.Close()

	var out []TierChange
	for rows.Next() {
		var c TierChange
		var at string
		if err := rows.Scan(&c.Frame, &c.From, &c.To, &c.FPS, &at); err != nil {
			return nil, fmt.Errorf("scan tier change: %w", err)
		}
		c.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of stored snapshots
func (s *Store) Count() (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}
