package learn

import (
	"math/rand"

	"github.com/smartmower/mower/internal/grid"
)

// QTable maps state-action pairs to action values. Reading an unseen pair
// stores and returns the initial value, so every read marks the pair as
// seen.
type QTable struct {
	initial float64
	t       table[float64]
}

func NewQTable(initial float64) *QTable {
	return &QTable{initial: initial, t: newTable[float64]()}
}

// Initial returns the value unseen pairs start with.
func (q *QTable) Initial() float64 { return q.initial }

// Len returns the number of stored pairs.
func (q *QTable) Len() int { return q.t.len() }

// Value returns the value of p, materialising the initial value on first
// access.
func (q *QTable) Value(p StateActionPair) float64 {
	if v, ok := q.t.get(p); ok {
		return v
	}
	q.t.set(p, q.initial)
	return q.initial
}

// Lookup returns the stored value without materialising anything.
func (q *QTable) Lookup(p StateActionPair) (float64, bool) {
	return q.t.get(p)
}

func (q *QTable) SetValue(p StateActionPair, v float64) {
	q.t.set(p, v)
}

// BestAction scans actions in order and returns the one with the highest
// value for s. Ties go to the earliest action. Every scanned pair is
// materialised. Returns false when actions is empty.
func (q *QTable) BestAction(s State, actions []grid.Direction) (grid.Direction, bool) {
	if len(actions) == 0 {
		return 0, false
	}
	best := actions[0]
	bestValue := q.Value(StateActionPair{State: s, Action: best})
	for _, a := range actions[1:] {
		if v := q.Value(StateActionPair{State: s, Action: a}); v > bestValue {
			best, bestValue = a, v
		}
	}
	return best, true
}

// AddScaled adds scale*e(p) to every stored pair p. Eligibilities are
// read through e.Value, so pairs missing from e are materialised there.
func (q *QTable) AddScaled(scale float64, e *EligibilityTable) {
	for i, k := range q.t.keys {
		q.t.vals[i] += scale * e.Value(k)
	}
}

// RandomVisited samples uniformly among the pairs whose value differs from
// the initial value. It returns false when there is no such pair.
func (q *QTable) RandomVisited(rng *rand.Rand) (StateActionPair, bool) {
	visited := make([]int, 0, q.t.len())
	for i, v := range q.t.vals {
		if v != q.initial {
			visited = append(visited, i)
		}
	}
	if len(visited) == 0 {
		return StateActionPair{}, false
	}
	return q.t.keys[visited[rng.Intn(len(visited))]], true
}

// Each calls fn for every stored pair in insertion order.
func (q *QTable) Each(fn func(p StateActionPair, v float64)) {
	q.t.each(fn)
}

// Replace drops all entries and loads the given ones in order.
func (q *QTable) Replace(keys []StateActionPair, vals []float64) {
	q.t.reset()
	for i, k := range keys {
		q.t.set(k, vals[i])
	}
}
