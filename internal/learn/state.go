// Package learn implements the mower's tabular learners: the state
// abstraction, the value tables, the two planning models and the
// Q-learning control loop.
package learn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smartmower/mower/internal/grid"
)

// State is the mower's observation: the statuses of the eight neighbours
// in N, NE, E, SE, S, SW, W, NW order plus the absolute position. It is
// comparable and used directly as a map key.
type State struct {
	Neighbours [8]grid.MowStatus
	Pos        grid.Position
}

// StateActionPair keys the value, eligibility and model tables.
type StateActionPair struct {
	State  State
	Action grid.Direction
}

// StateRewardPair is the Dyna-Q model's belief about an action's outcome.
type StateRewardPair struct {
	State  State
	Reward float64
}

// StatusGrid answers mow status queries. Positions outside the grid must
// read as Obstacle.
type StatusGrid interface {
	TileStatus(p grid.Position) grid.MowStatus
}

// Positioner is anything with a grid position.
type Positioner interface {
	Position() grid.Position
}

// StateAt observes g from position p.
func StateAt(g StatusGrid, p grid.Position) State {
	s := State{Pos: p}
	for i, d := range grid.Neighbourhood() {
		s.Neighbours[i] = g.TileStatus(p.Move(d))
	}
	return s
}

// StateExtractor observes the grid from the agent's current position.
type StateExtractor struct {
	grid  StatusGrid
	agent Positioner
}

func NewStateExtractor(g StatusGrid, agent Positioner) *StateExtractor {
	return &StateExtractor{grid: g, agent: agent}
}

// Extract returns the current state. It has no side effects.
func (e *StateExtractor) Extract() State {
	return StateAt(e.grid, e.agent.Position())
}

// Key encodes s as "x,y|NNNNNNNN" with one status code per neighbour.
func (s State) Key() string {
	var b strings.Builder
	b.Grow(16)
	b.WriteString(strconv.Itoa(s.Pos.X))
	b.WriteByte(',')
	b.WriteString(strconv.Itoa(s.Pos.Y))
	b.WriteByte('|')
	for _, st := range s.Neighbours {
		b.WriteByte(st.Code())
	}
	return b.String()
}

func (s State) String() string { return s.Key() }

// ParseState is the inverse of State.Key.
func ParseState(key string) (State, error) {
	posPart, codes, ok := strings.Cut(key, "|")
	if !ok || len(codes) != 8 {
		return State{}, fmt.Errorf("malformed state key %q", key)
	}
	xs, ys, ok := strings.Cut(posPart, ",")
	if !ok {
		return State{}, fmt.Errorf("malformed state position %q", key)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return State{}, fmt.Errorf("state key %q: %w", key, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return State{}, fmt.Errorf("state key %q: %w", key, err)
	}
	s := State{Pos: grid.Pos(x, y)}
	for i := 0; i < 8; i++ {
		st, err := grid.MowStatusFromCode(codes[i])
		if err != nil {
			return State{}, fmt.Errorf("state key %q: %w", key, err)
		}
		s.Neighbours[i] = st
	}
	return s, nil
}

// Key encodes p as "<state key>|<direction>".
func (p StateActionPair) Key() string {
	return p.State.Key() + "|" + p.Action.String()
}

func (p StateActionPair) String() string { return p.Key() }

// ParseStateActionPair is the inverse of StateActionPair.Key.
func ParseStateActionPair(key string) (StateActionPair, error) {
	i := strings.LastIndexByte(key, '|')
	if i < 0 {
		return StateActionPair{}, fmt.Errorf("malformed state-action key %q", key)
	}
	s, err := ParseState(key[:i])
	if err != nil {
		return StateActionPair{}, err
	}
	d, err := grid.ParseDirection(key[i+1:])
	if err != nil {
		return StateActionPair{}, fmt.Errorf("state-action key %q: %w", key, err)
	}
	return StateActionPair{State: s, Action: d}, nil
}
