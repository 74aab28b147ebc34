package learn

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/smartmower/mower/internal/episode"
	"github.com/smartmower/mower/internal/grid"
	"go.uber.org/zap"
)

// Tables are the tables a QLearner works on. E is required with
// eligibility traces, Model with refined planning and Dyna with Dyna-Q
// planning.
type Tables struct {
	Q     *QTable
	E     *EligibilityTable
	Model *ModelTable
	Dyna  *DynaModel
}

// QLearner is tabular Q-learning with optional eligibility traces and
// optional model-based planning. Learn is called once after every mower
// move, always after the ChooseAction that produced the move.
type QLearner struct {
	p      Params
	ext    *StateExtractor
	tables Tables

	ctrl  *episode.Controller
	store Persister
	rng   *rand.Rand
	log   *zap.Logger

	// available is the action set of the last ChooseAction; it is reused
	// for BestAction inside Learn.
	available  []grid.Direction
	lastState  State
	lastAction grid.Direction
}

// NewQLearner creates a learner over tables. store may be nil, in which
// case nothing is saved at the end of the run.
func NewQLearner(p Params, ext *StateExtractor, tables Tables, ctrl *episode.Controller, store Persister, rng *rand.Rand, log *zap.Logger) (*QLearner, error) {
	if tables.Q == nil {
		return nil, errors.New("qlearner: no qtable")
	}
	if p.EligibilityTraces && tables.E == nil {
		return nil, errors.New("qlearner: eligibility traces enabled without eligibility table")
	}
	if p.ModelPlanning && p.Refined && tables.Model == nil {
		return nil, errors.New("qlearner: refined planning enabled without model table")
	}
	if p.ModelPlanning && !p.Refined && tables.Dyna == nil {
		return nil, errors.New("qlearner: dyna-q planning enabled without dyna model")
	}
	if p.N < 0 {
		return nil, fmt.Errorf("qlearner: negative planning steps %d", p.N)
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := &QLearner{
		p:      p,
		ext:    ext,
		tables: tables,
		ctrl:   ctrl,
		store:  store,
		rng:    rng,
		log:    log,
	}
	log.Info("qlearner created",
		zap.Float64("greediness", p.Greediness),
		zap.Float64("discount", p.Discount),
		zap.Float64("learn_rate", p.LearnRate),
		zap.Float64("initial_q", p.InitialQ),
		zap.Bool("eligibility_traces", p.EligibilityTraces),
		zap.Float64("gamma", p.Gamma),
		zap.Bool("model_planning", p.ModelPlanning),
		zap.Bool("refined", p.Refined),
		zap.Int("n", p.N))
	return l, nil
}

func (l *QLearner) Params() Params   { return l.p }
func (l *QLearner) Tables() Tables   { return l.tables }
func (l *QLearner) LastState() State { return l.lastState }

func (l *QLearner) LastAction() grid.Direction { return l.lastAction }

// ChooseAction explores uniformly with probability 1-greediness and
// otherwise takes the best known action for the current state.
func (l *QLearner) ChooseAction(available []grid.Direction) grid.Direction {
	l.available = append(l.available[:0], available...)
	current := l.ext.Extract()

	var action grid.Direction
	if l.rng.Float64() > l.p.Greediness {
		action = available[l.rng.Intn(len(available))]
	} else {
		action, _ = l.tables.Q.BestAction(current, l.available)
	}
	l.lastState = current
	l.lastAction = action
	return action
}

// Learn updates the value of the last state-action pair with the observed
// reward and then runs the configured planning.
func (l *QLearner) Learn(reward float64) {
	q := l.tables.Q
	oldSAP := StateActionPair{State: l.lastState, Action: l.lastAction}
	oldQ := q.Value(oldSAP)

	current := l.ext.Extract()
	bestQ := l.bestValue(current)

	if l.p.EligibilityTraces {
		delta := reward + l.p.Discount*bestQ - oldQ
		l.tables.E.SetValue(oldSAP, 1)
		q.AddScaled(l.p.LearnRate*delta, l.tables.E)
		l.tables.E.ScaleAll(l.p.Discount * l.p.Gamma)
	} else {
		q.SetValue(oldSAP, lerp(oldQ, reward+l.p.Discount*bestQ, l.p.LearnRate))
	}

	if !l.p.ModelPlanning {
		return
	}
	if l.p.Refined {
		l.planRefined(current)
	} else {
		l.planDyna(oldSAP, current, reward)
	}
}

// bestValue is the value of the best action in s over the last available
// action set. An empty set reads as the initial value.
func (l *QLearner) bestValue(s State) float64 {
	best, ok := l.tables.Q.BestAction(s, l.available)
	if !ok {
		return l.tables.Q.Initial()
	}
	return l.tables.Q.Value(StateActionPair{State: s, Action: best})
}

func (l *QLearner) tdUpdate(from StateActionPair, reward float64, next State) {
	q := l.tables.Q
	fromQ := q.Value(from)
	q.SetValue(from, lerp(fromQ, reward+l.p.Discount*l.bestValue(next), l.p.LearnRate))
}

func (l *QLearner) planRefined(observed State) {
	l.tables.Model.Incorporate(observed)
	for i := 0; i < l.p.N; i++ {
		step, ok := l.tables.Model.RandomStep(l.rng)
		if !ok {
			continue
		}
		l.tdUpdate(StateActionPair{State: step.From, Action: step.Action}, step.Reward, step.To)
	}
}

// planDyna replays recorded transitions. A sampled pair without a recorded
// outcome is skipped.
func (l *QLearner) planDyna(oldSAP StateActionPair, current State, reward float64) {
	l.tables.Dyna.Record(oldSAP, StateRewardPair{State: current, Reward: reward})
	for i := 0; i < l.p.N; i++ {
		sap, ok := l.tables.Q.RandomVisited(l.rng)
		if !ok {
			return
		}
		outcome, ok := l.tables.Dyna.Outcome(sap)
		if !ok {
			continue
		}
		l.tdUpdate(sap, outcome.Reward, outcome.State)
	}
}

// EpisodeWillEnd saves the tables when the last episode ends.
func (l *QLearner) EpisodeWillEnd(ep int) {
	l.log.Debug("learner tables",
		zap.Int("episode", ep),
		zap.Int("qtable", l.tables.Q.Len()),
		zap.Int("eligibility", tableLen(l.tables.E)),
		zap.Int("dyna_model", dynaLen(l.tables.Dyna)))
	if l.ctrl == nil || !l.ctrl.LimitReached() || l.store == nil {
		return
	}
	l.save("qtable", l.p.QTableSave, func() error { return l.store.SaveQTable(l.p.QTableSave, l.tables.Q) })
	if l.p.EligibilityTraces {
		l.save("eligibility", l.p.EligibilitySave, func() error { return l.store.SaveEligibility(l.p.EligibilitySave, l.tables.E) })
	}
	if l.p.ModelPlanning {
		if l.p.Refined {
			l.save("model", l.p.ModelSave, func() error { return l.store.SaveModel(l.p.ModelSave, l.tables.Model) })
		} else {
			l.save("dyna_model", l.p.ModelSave, func() error { return l.store.SaveDynaModel(l.p.ModelSave, l.tables.Dyna) })
		}
	}
}

func (l *QLearner) save(kind, loc string, fn func() error) {
	if loc == "" {
		return
	}
	if err := fn(); err != nil {
		l.log.Error("save table", zap.String("kind", kind), zap.String("location", loc), zap.Error(err))
		return
	}
	l.log.Info("table saved", zap.String("kind", kind), zap.String("location", loc))
}

func (l *QLearner) EpisodeDidEnd(int)    {}
func (l *QLearner) EpisodeWillStart(int) {}
func (l *QLearner) EpisodeDidStart(int)  {}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func tableLen(e *EligibilityTable) int {
	if e == nil {
		return 0
	}
	return e.Len()
}

func dynaLen(m *DynaModel) int {
	if m == nil {
		return 0
	}
	return m.Len()
}
