package garden

import (
	"github.com/smartmower/mower/internal/grid"
)

// Mower is the learning agent's body. It counts the tiles left to mow and
// hands action choice to its Learner.
type Mower struct {
	pos       grid.Position
	start     grid.Position
	garden    *Garden
	remaining int
	learner   Learner

	mowReward     float64
	notMownReward float64

	observers []MoveObserver
}

func newMower(start grid.Position, g *Garden, mowReward, notMownReward float64) *Mower {
	return &Mower{
		pos:           start,
		start:         start,
		garden:        g,
		remaining:     g.NumGrassTiles(),
		mowReward:     mowReward,
		notMownReward: notMownReward,
	}
}

func (m *Mower) Name() string                 { return "mower" }
func (m *Mower) Position() grid.Position      { return m.pos }
func (m *Mower) StartPosition() grid.Position { return m.start }
func (m *Mower) Garden() *Garden              { return m.garden }
func (m *Mower) Learner() Learner             { return m.learner }
func (m *Mower) RemainingTilesToMow() int     { return m.remaining }
func (m *Mower) MowingFinished() bool         { return m.remaining == 0 }
func (m *Mower) MowReward() float64           { return m.mowReward }
func (m *Mower) NotMownReward() float64       { return m.notMownReward }

// PossibleMoves returns the von Neumann moves in N, S, W, E order.
func (m *Mower) PossibleMoves() []grid.Direction {
	return grid.VonNeumann()
}

// AddObserver registers a move observer. Duplicates are ignored.
func (m *Mower) AddObserver(o MoveObserver) bool {
	for _, existing := range m.observers {
		if existing == o {
			return false
		}
	}
	m.observers = append(m.observers, o)
	return true
}

// PerformMoveFromAvailable lets the learner pick one of the available
// moves, mows the destination, feeds the reward back to the learner and
// then tells the observers about the move.
func (m *Mower) PerformMoveFromAvailable(available []grid.Direction) {
	dir := m.learner.ChooseAction(available)
	from := m.pos
	m.pos = from.Move(dir)
	reward := m.mow()
	m.learner.Learn(reward)
	m.notify(from)
}

// mow cuts long grass at the current position and returns the reward.
// Charging stations and short grass give NotMownReward.
func (m *Mower) mow() float64 {
	if m.garden.TileStatus(m.pos) != grid.LongGrass {
		return m.notMownReward
	}
	m.garden.SetTileStatus(m.pos, grid.ShortGrass)
	m.remaining--
	return m.mowReward
}

func (m *Mower) notify(from grid.Position) {
	for _, o := range m.observers {
		o.EntityMoved(m, from, m.pos)
	}
}

func (m *Mower) EpisodeWillEnd(int) {}

func (m *Mower) EpisodeDidEnd(int) {
	from := m.pos
	m.pos = m.start
	m.notify(from)
	m.remaining = m.garden.NumGrassTiles()
}

func (m *Mower) EpisodeWillStart(int) {}
func (m *Mower) EpisodeDidStart(int)  {}
