package learn

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/grid"
	"go.uber.org/zap"
)

// Learner type names accepted by NewFactory.
const (
	TypeQLearner      = "QLearner"
	TypeRandomLearner = "RandomLearner"
)

var ErrUnknownLearner = errors.New("unknown learner type")

// Params are the learner settings. Locations are opaque to this package
// and handed to the Store; an empty location means "don't".
type Params struct {
	Learner string

	Greediness float64
	Discount   float64
	LearnRate  float64
	InitialQ   float64

	EligibilityTraces bool
	Gamma             float64

	ModelPlanning bool
	Refined       bool
	N             int
	NumRetries    int

	QTableLoad      string
	QTableSave      string
	EligibilityLoad string
	EligibilitySave string
	ModelLoad       string
	ModelSave       string
}

// Persister writes tables to a location.
type Persister interface {
	SaveQTable(loc string, q *QTable) error
	SaveEligibility(loc string, e *EligibilityTable) error
	SaveModel(loc string, m *ModelTable) error
	SaveDynaModel(loc string, m *DynaModel) error
}

// Loader fills tables from a location.
type Loader interface {
	LoadQTable(loc string, q *QTable) error
	LoadEligibility(loc string, e *EligibilityTable) error
	LoadModel(loc string, m *ModelTable) error
	LoadDynaModel(loc string, m *DynaModel) error
}

type Store interface {
	Persister
	Loader
}

// RandomLearner picks uniformly among the available actions and never
// learns.
type RandomLearner struct {
	rng *rand.Rand
}

func NewRandomLearner(rng *rand.Rand) *RandomLearner {
	return &RandomLearner{rng: rng}
}

func (l *RandomLearner) ChooseAction(available []grid.Direction) grid.Direction {
	return available[l.rng.Intn(len(available))]
}

func (l *RandomLearner) Learn(float64) {}

// NewFactory returns the garden's learner factory for p. store may be nil
// when no table is loaded or saved.
//
// For a QLearner the planning model is registered with the episode
// controller before the learner itself, so beliefs are already reset when
// the learner saves them at the end of the last episode.
func NewFactory(p Params, store Store, rng *rand.Rand, log *zap.Logger) garden.LearnerFactory {
	if log == nil {
		log = zap.NewNop()
	}
	return func(g *garden.Garden, m *garden.Mower) (garden.Learner, error) {
		switch p.Learner {
		case TypeRandomLearner:
			log.Info("learner created", zap.String("type", p.Learner))
			return NewRandomLearner(rng), nil
		case TypeQLearner:
			return newQLearnerFor(p, store, g, m, rng, log)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownLearner, p.Learner)
		}
	}
}

func newQLearnerFor(p Params, store Store, g *garden.Garden, m *garden.Mower, rng *rand.Rand, log *zap.Logger) (*QLearner, error) {
	var tables Tables
	tables.Q = NewQTable(p.InitialQ)
	if err := load(store, p.QTableLoad, func(l Loader) error { return l.LoadQTable(p.QTableLoad, tables.Q) }); err != nil {
		return nil, fmt.Errorf("load qtable: %w", err)
	}
	if p.EligibilityTraces {
		tables.E = NewEligibilityTable(0)
		if err := load(store, p.EligibilityLoad, func(l Loader) error { return l.LoadEligibility(p.EligibilityLoad, tables.E) }); err != nil {
			return nil, fmt.Errorf("load eligibility table: %w", err)
		}
	}
	if p.ModelPlanning {
		if p.Refined {
			tables.Model = NewModelTable(g.Width(), g.Height(), m.PossibleMoves(), m.MowReward(), m.NotMownReward())
			tables.Model.SetNumRetries(p.NumRetries)
			if err := load(store, p.ModelLoad, func(l Loader) error { return l.LoadModel(p.ModelLoad, tables.Model) }); err != nil {
				return nil, fmt.Errorf("load model: %w", err)
			}
			g.Controller().Register(tables.Model)
		} else {
			tables.Dyna = NewDynaModel()
			if err := load(store, p.ModelLoad, func(l Loader) error { return l.LoadDynaModel(p.ModelLoad, tables.Dyna) }); err != nil {
				return nil, fmt.Errorf("load dyna model: %w", err)
			}
		}
	}

	var persister Persister
	if store != nil {
		persister = store
	}
	q, err := NewQLearner(p, NewStateExtractor(g, m), tables, g.Controller(), persister, rng, log)
	if err != nil {
		return nil, err
	}
	g.Controller().Register(q)
	return q, nil
}

func load(store Store, loc string, fn func(Loader) error) error {
	if loc == "" {
		return nil
	}
	if store == nil {
		return fmt.Errorf("no table store configured for %q", loc)
	}
	return fn(store)
}
