package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smartmower/mower/internal/config"
	"go.uber.org/zap"
)

// PGStore keeps snapshots and run statistics in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to cfg.DSN, checks the connection and migrates the
// schema.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*PGStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	version, err := RunMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("snapshot database ready",
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int64("schema", version),
	)
	return &PGStore{pool: pool}, nil
}

// poolConfig maps the [database] section onto a pool config. Zero values
// keep the pgx defaults; an idle floor above the limit is ignored.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && int32(cfg.MaxIdleConns) <= poolCfg.MaxConns {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	return poolCfg, nil
}

func (r *PGStore) Save(ctx context.Context, name string, s *Snapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO snapshots (name, kind, records, body, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (name) DO UPDATE
		 SET kind = EXCLUDED.kind, records = EXCLUDED.records, body = EXCLUDED.body, updated_at = now()`,
		name, string(s.Kind), s.Len(), body,
	)
	if err != nil {
		return fmt.Errorf("snapshot upsert: %w", err)
	}
	return nil
}

func (r *PGStore) Load(ctx context.Context, name string) (*Snapshot, error) {
	var body []byte
	err := r.pool.QueryRow(ctx,
		`SELECT body FROM snapshots WHERE name = $1`, name,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	s := &Snapshot{}
	if err := json.Unmarshal(body, s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return s, nil
}

// RecordEpisodes writes a batch of statistics rows in one transaction.
// Rewriting an episode of the same run replaces it.
func (r *PGStore) RecordEpisodes(ctx context.Context, rows []EpisodeRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("episodes begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range rows {
		if _, err := tx.Exec(ctx,
			`INSERT INTO episodes (run_id, episode, steps, reward, ended_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (run_id, episode) DO UPDATE
			 SET steps = EXCLUDED.steps, reward = EXCLUDED.reward, ended_at = EXCLUDED.ended_at`,
			e.RunID, e.Episode, e.Steps, e.Reward, e.EndedAt,
		); err != nil {
			return fmt.Errorf("episodes insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PGStore) Episodes(ctx context.Context, runID string) ([]EpisodeRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT run_id::text, episode, steps, reward, ended_at
		 FROM episodes WHERE run_id = $1 ORDER BY episode`, runID,
	)
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

func (r *PGStore) Close() error {
	r.pool.Close()
	return nil
}
