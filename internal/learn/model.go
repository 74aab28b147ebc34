package learn

import (
	"fmt"
	"math/rand"

	"github.com/smartmower/mower/internal/grid"
)

// DefaultNumRetries is how many extra attempts RandomStep makes by default.
const DefaultNumRetries = 1

// ModelTable is the refined planning model: a belief grid shaped like the
// garden. Every cell starts out believed to be long grass and is corrected
// by what the mower observes.
type ModelTable struct {
	width   int
	height  int
	beliefs []grid.MowStatus

	moves         []grid.Direction
	mowReward     float64
	notMownReward float64
	numRetries    int
}

// ModelStep is one synthesised transition.
type ModelStep struct {
	From   State
	Action grid.Direction
	To     State
	Reward float64
}

// NewModelTable creates a belief grid of the given size. moves are the
// actions the mower can take, in the order they are offered.
func NewModelTable(width, height int, moves []grid.Direction, mowReward, notMownReward float64) *ModelTable {
	m := &ModelTable{
		width:         width,
		height:        height,
		beliefs:       make([]grid.MowStatus, width*height),
		moves:         append([]grid.Direction(nil), moves...),
		mowReward:     mowReward,
		notMownReward: notMownReward,
		numRetries:    DefaultNumRetries,
	}
	for i := range m.beliefs {
		m.beliefs[i] = grid.LongGrass
	}
	return m
}

// SetNumRetries changes the retry budget of RandomStep. Negative values
// are treated as zero.
func (m *ModelTable) SetNumRetries(n int) {
	if n < 0 {
		n = 0
	}
	m.numRetries = n
}

func (m *ModelTable) Width() int  { return m.width }
func (m *ModelTable) Height() int { return m.height }

// TileStatus returns the believed status at p. Positions outside the grid
// read as Obstacle.
func (m *ModelTable) TileStatus(p grid.Position) grid.MowStatus {
	if !p.InBounds(m.width, m.height) {
		return grid.Obstacle
	}
	return m.beliefs[p.Index(m.width)]
}

func (m *ModelTable) setBelief(p grid.Position, s grid.MowStatus) bool {
	if !p.InBounds(m.width, m.height) {
		return false
	}
	m.beliefs[p.Index(m.width)] = s
	return true
}

// Incorporate writes the eight observed neighbour statuses of s into the
// belief grid. Neighbours outside the grid are dropped.
func (m *ModelTable) Incorporate(s State) {
	for i, d := range grid.Neighbourhood() {
		m.setBelief(s.Pos.Move(d), s.Neighbours[i])
	}
}

// RandomStep synthesises a transition from a uniformly random cell. A cell
// without any believed-passable move is retried up to numRetries times;
// false means every attempt failed.
func (m *ModelTable) RandomStep(rng *rand.Rand) (ModelStep, bool) {
	possible := make([]grid.Direction, 0, len(m.moves))
	for attempt := 0; attempt <= m.numRetries; attempt++ {
		from := grid.Pos(rng.Intn(m.width), rng.Intn(m.height))
		fromState := StateAt(m, from)

		possible = possible[:0]
		for _, d := range m.moves {
			if m.TileStatus(from.Move(d)) != grid.Obstacle {
				possible = append(possible, d)
			}
		}
		if len(possible) == 0 {
			continue
		}

		action := possible[rng.Intn(len(possible))]
		to := from.Move(action)
		reward := m.notMownReward
		if m.TileStatus(to) == grid.LongGrass {
			reward = m.mowReward
		}
		return ModelStep{From: fromState, Action: action, To: StateAt(m, to), Reward: reward}, true
	}
	return ModelStep{}, false
}

// Beliefs returns a copy of the belief grid in row-major order.
func (m *ModelTable) Beliefs() []grid.MowStatus {
	return append([]grid.MowStatus(nil), m.beliefs...)
}

// Restore replaces the belief grid. The size must match.
func (m *ModelTable) Restore(width, height int, beliefs []grid.MowStatus) error {
	if width != m.width || height != m.height || len(beliefs) != width*height {
		return fmt.Errorf("model size %dx%d (%d cells) does not match garden %dx%d",
			width, height, len(beliefs), m.width, m.height)
	}
	copy(m.beliefs, beliefs)
	return nil
}

// EpisodeWillEnd forgets every mown cell: all grass grows back between
// episodes, and the model knows it before the garden resets.
func (m *ModelTable) EpisodeWillEnd(int) {
	for i, s := range m.beliefs {
		if s == grid.ShortGrass {
			m.beliefs[i] = grid.LongGrass
		}
	}
}

func (m *ModelTable) EpisodeDidEnd(int)    {}
func (m *ModelTable) EpisodeWillStart(int) {}
func (m *ModelTable) EpisodeDidStart(int)  {}
