// Package sim wires the garden, the learner, the episode controller and
// the outer layers into one tick-driven simulation.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/smartmower/mower/internal/config"
	"github.com/smartmower/mower/internal/core/event"
	"github.com/smartmower/mower/internal/core/system"
	"github.com/smartmower/mower/internal/episode"
	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/learn"
	"github.com/smartmower/mower/internal/persist"
	"github.com/smartmower/mower/internal/stats"
	"go.uber.org/zap"
)

// flushTimeout bounds one statistics flush to the database.
const flushTimeout = 10 * time.Second

// Deps are the collaborators New does not build itself. All are optional.
type Deps struct {
	Store  learn.Store       // table loads and saves
	Policy garden.MovePolicy // obstacle moves; uniform random when nil
	Stats  persist.StatsSink // used when statistics.record_db is set
	Log    *zap.Logger
	Rand   *rand.Rand // seeded from setup.seed when nil
}

// Simulation owns every piece of simulation state. It is driven from a
// single goroutine.
type Simulation struct {
	cfg     *config.Config
	ctrl    *episode.Controller
	garden  *garden.Garden
	runner  *system.Runner
	bus     *event.Bus
	counter *stats.StepCounter
	tracker *stats.Tracker
	log     *zap.Logger

	last time.Time
}

// LearnParams maps the configuration onto learner parameters.
func LearnParams(cfg *config.Config) learn.Params {
	return learn.Params{
		Learner:           cfg.Mower.Learner,
		Greediness:        cfg.QLearner.Greediness,
		Discount:          cfg.QLearner.Discount,
		LearnRate:         cfg.QLearner.LearnRate,
		InitialQ:          cfg.QLearner.InitialQ,
		EligibilityTraces: cfg.Mower.EligibilityTraces,
		Gamma:             cfg.Mower.Gamma,
		ModelPlanning:     cfg.Mower.ModelPlanning,
		Refined:           cfg.Mower.Refined,
		N:                 cfg.Mower.N,
		NumRetries:        cfg.Mower.NumRetries,
		QTableLoad:        cfg.QLearner.QTableLoad,
		QTableSave:        cfg.QLearner.QTableSave,
		EligibilityLoad:   cfg.Mower.EligibilityLoad,
		EligibilitySave:   cfg.Mower.EligibilitySave,
		ModelLoad:         cfg.Mower.ModelLoad,
		ModelSave:         cfg.Mower.ModelSave,
	}
}

// New builds a simulation. Episode receivers are registered in this
// order: moving obstacles, planning model, learner, mower, garden, step
// counter, statistics, event bridge.
func New(cfg *config.Config, layout *garden.Layout, deps Deps) (*Simulation, error) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Setup.Seed))
	}

	s := &Simulation{
		cfg:     cfg,
		ctrl:    episode.NewController(cfg.Episode.Limit, log),
		runner:  system.NewRunner(),
		bus:     event.NewBus(),
		counter: stats.NewStepCounter(),
		log:     log,
	}

	var out *stats.Writer
	if cfg.Statistics.File != "" {
		w, err := stats.Create(cfg.Statistics.File)
		if err != nil {
			return nil, err
		}
		out = w
	}
	var sink persist.StatsSink
	if cfg.Statistics.RecordDB {
		if deps.Stats == nil {
			if out != nil {
				out.Close()
			}
			return nil, fmt.Errorf("statistics.record_db set but store backend %q keeps no statistics", cfg.Store.Backend)
		}
		sink = deps.Stats
	}
	s.tracker = stats.NewTracker(uuid.NewString(), s.counter, out, sink, log)

	newLearner := learn.NewFactory(LearnParams(cfg), deps.Store, rng, log)
	g, err := garden.New(layout, s.ctrl, garden.Options{
		MowReward:     cfg.Mower.MowReward,
		NotMownReward: cfg.Mower.NotMownReward,
		NewLearner: func(g *garden.Garden, m *garden.Mower) (garden.Learner, error) {
			l, err := newLearner(g, m)
			if err != nil {
				return nil, err
			}
			return s.tracker.Tap(l), nil
		},
		Policy: deps.Policy,
		Rand:   rng,
		Log:    log,
	})
	if err != nil {
		if out != nil {
			out.Close()
		}
		return nil, err
	}
	s.garden = g

	s.ctrl.Register(s.counter)
	s.ctrl.Register(s.tracker)
	b := &bridge{bus: s.bus}
	s.ctrl.Register(b)
	g.AddObserver(b)
	g.AddMoveObserver(b)

	s.runner.Register(system.Func{P: system.PhaseUpdate, Fn: s.step})
	s.runner.Register(system.Func{P: system.PhasePostUpdate, Fn: s.signalTick})
	s.runner.Register(system.Func{P: system.PhaseOutput, Fn: func(time.Duration) { s.bus.Dispatch() }})
	s.runner.Register(system.Func{P: system.PhasePersist, Fn: s.flushStats})

	log.Info("simulation ready",
		zap.String("run_id", s.tracker.RunID()),
		zap.String("learner", cfg.Mower.Learner),
		zap.Int("episode_limit", cfg.Episode.Limit),
		zap.Int64("seed", cfg.Setup.Seed))
	return s, nil
}

func (s *Simulation) Garden() *garden.Garden          { return s.garden }
func (s *Simulation) Controller() *episode.Controller { return s.ctrl }
func (s *Simulation) Bus() *event.Bus                 { return s.bus }
func (s *Simulation) Tracker() *stats.Tracker         { return s.tracker }
func (s *Simulation) Steps() uint64                   { return s.counter.Total() }
func (s *Simulation) Ticks() uint64                   { return s.runner.Ticks() }

// AddSystem registers an extra tick system, e.g. the live feed flush.
// Systems added later run after the built-in ones of the same phase.
func (s *Simulation) AddSystem(sys system.System) {
	s.runner.Register(sys)
}

func (s *Simulation) step(time.Duration) {
	if s.ctrl.Finished() {
		return
	}
	s.counter.Count()
	s.garden.Step()
}

func (s *Simulation) signalTick(time.Duration) {
	event.Emit(s.bus, event.TickCompleted{
		Tick:    s.runner.Ticks() + 1,
		Episode: s.ctrl.Episode(),
		Step:    s.counter.Steps(),
	})
}

func (s *Simulation) flushStats(time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := s.tracker.Flush(ctx); err != nil {
		s.log.Warn("statistics flush failed", zap.Error(err))
	}
}

// Done reports whether the run is over: the episode limit was reached
// or setup.max_ticks ticks have run.
func (s *Simulation) Done() bool {
	if s.ctrl.Finished() {
		return true
	}
	limit := s.cfg.Setup.MaxTicks
	return limit > 0 && s.runner.Ticks() >= limit
}

// Tick runs one runner tick.
func (s *Simulation) Tick() {
	now := time.Now()
	var dt time.Duration
	if !s.last.IsZero() {
		dt = now.Sub(s.last)
	}
	s.last = now
	s.runner.Tick(dt)
}

// Run ticks until Done or ctx is cancelled. With setup.tick_rate set the
// ticks are paced by a ticker, otherwise they run back to back.
func (s *Simulation) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if rate := s.cfg.Setup.TickRate; rate > 0 {
		ticker := time.NewTicker(rate)
		defer ticker.Stop()
		tick = ticker.C
	}

	for !s.Done() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		s.Tick()
	}
	s.log.Info("run finished",
		zap.Int("episode", s.ctrl.Episode()),
		zap.Uint64("ticks", s.runner.Ticks()),
		zap.Uint64("steps", s.counter.Total()))
	return nil
}

// Close flushes outstanding statistics and closes the CSV file.
func (s *Simulation) Close(ctx context.Context) error {
	return s.tracker.Close(ctx)
}
