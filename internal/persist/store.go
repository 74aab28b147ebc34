package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/smartmower/mower/internal/config"
	"github.com/smartmower/mower/internal/learn"
	"go.uber.org/zap"
)

// Backend stores snapshots under a name: a file path for FileBackend, a
// row key for the database backends.
type Backend interface {
	Save(ctx context.Context, name string, s *Snapshot) error
	Load(ctx context.Context, name string) (*Snapshot, error)
	Close() error
}

// EpisodeRow is one line of run statistics.
type EpisodeRow struct {
	RunID   string
	Episode int
	Steps   int
	Reward  float64
	EndedAt time.Time
}

// StatsSink records run statistics. The database backends implement it.
type StatsSink interface {
	RecordEpisodes(ctx context.Context, rows []EpisodeRow) error
	Episodes(ctx context.Context, runID string) ([]EpisodeRow, error)
}

// opTimeout bounds every table save or load issued by the learner.
const opTimeout = 30 * time.Second

// TableStore adapts a Backend to the learner's table store.
type TableStore struct {
	b   Backend
	log *zap.Logger
}

var _ learn.Store = (*TableStore)(nil)

func NewTableStore(b Backend, log *zap.Logger) *TableStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &TableStore{b: b, log: log}
}

func (t *TableStore) Backend() Backend { return t.b }

func (t *TableStore) save(loc string, s *Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := t.b.Save(ctx, loc, s); err != nil {
		return fmt.Errorf("save %s to %s: %w", s.Kind, loc, err)
	}
	t.log.Debug("snapshot saved", zap.String("kind", string(s.Kind)), zap.String("location", loc), zap.Int("records", s.Len()))
	return nil
}

func (t *TableStore) load(loc string, apply func(*Snapshot) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	s, err := t.b.Load(ctx, loc)
	if err != nil {
		return fmt.Errorf("load %s: %w", loc, err)
	}
	if err := apply(s); err != nil {
		return fmt.Errorf("load %s: %w", loc, err)
	}
	t.log.Info("snapshot loaded", zap.String("kind", string(s.Kind)), zap.String("location", loc), zap.Int("records", s.Len()))
	return nil
}

func (t *TableStore) SaveQTable(loc string, q *learn.QTable) error {
	return t.save(loc, FromQTable(q))
}

func (t *TableStore) SaveEligibility(loc string, e *learn.EligibilityTable) error {
	return t.save(loc, FromEligibility(e))
}

func (t *TableStore) SaveModel(loc string, m *learn.ModelTable) error {
	return t.save(loc, FromModel(m))
}

func (t *TableStore) SaveDynaModel(loc string, m *learn.DynaModel) error {
	return t.save(loc, FromDynaModel(m))
}

func (t *TableStore) LoadQTable(loc string, q *learn.QTable) error {
	return t.load(loc, func(s *Snapshot) error { return s.ApplyQTable(q) })
}

func (t *TableStore) LoadEligibility(loc string, e *learn.EligibilityTable) error {
	return t.load(loc, func(s *Snapshot) error { return s.ApplyEligibility(e) })
}

func (t *TableStore) LoadModel(loc string, m *learn.ModelTable) error {
	return t.load(loc, func(s *Snapshot) error { return s.ApplyModel(m) })
}

func (t *TableStore) LoadDynaModel(loc string, m *learn.DynaModel) error {
	return t.load(loc, func(s *Snapshot) error { return s.ApplyDynaModel(m) })
}

// Open creates the backend selected by cfg.Store. Postgres connections are
// migrated before use.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Backend, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Store.Backend {
	case config.BackendFile:
		return FileBackend{}, nil
	case config.BackendSQLite:
		s, err := OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite store opened", zap.String("path", cfg.Store.SQLitePath))
		return s, nil
	case config.BackendPostgres:
		s, err := OpenPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
