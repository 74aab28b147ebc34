package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps snapshots and run statistics in an embedded SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and runs
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		records INTEGER NOT NULL,
		body TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS episodes (
		run_id TEXT NOT NULL,
		episode INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		reward REAL NOT NULL,
		ended_at DATETIME NOT NULL,
		PRIMARY KEY (run_id, episode)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, name string, snap *Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (name, kind, records, body, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET kind = excluded.kind, records = excluded.records,
		 body = excluded.body, updated_at = excluded.updated_at`,
		name, string(snap.Kind), snap.Len(), string(body), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("snapshot upsert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (*Snapshot, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{}
	if err := json.Unmarshal([]byte(body), snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return snap, nil
}

func (s *SQLiteStore) RecordEpisodes(ctx context.Context, rows []EpisodeRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("episodes begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO episodes (run_id, episode, steps, reward, ended_at) VALUES (?, ?, ?, ?, ?)`,
			e.RunID, e.Episode, e.Steps, e.Reward, e.EndedAt.UTC(),
		); err != nil {
			return fmt.Errorf("episodes insert: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Episodes(ctx context.Context, runID string) ([]EpisodeRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, episode, steps, reward, ended_at FROM episodes WHERE run_id = ? ORDER BY episode`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EpisodeRow
	for rows.Next() {
		var e EpisodeRow
		if err := rows.Scan(&e.RunID, &e.Episode, &e.Steps, &e.Reward, &e.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
