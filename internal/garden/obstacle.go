package garden

import (
	"fmt"
	"math/rand"

	"github.com/smartmower/mower/internal/grid"
	"go.uber.org/zap"
)

// StaticObstacle marks an impassable tile such as a rock or a pond.
type StaticObstacle struct {
	Pos  grid.Position
	Kind StaticKind
}

// MovePolicy decides where a moving obstacle goes. available is never
// empty and only holds legal moves.
type MovePolicy interface {
	ChooseMove(g *Garden, o *MovingObstacle, available []grid.Direction) grid.Direction
}

// RandomPolicy picks uniformly among the available moves.
type RandomPolicy struct {
	Rand *rand.Rand
}

func (p RandomPolicy) ChooseMove(_ *Garden, _ *MovingObstacle, available []grid.Direction) grid.Direction {
	return available[p.Rand.Intn(len(available))]
}

// MovingObstacle is an animal or a person wandering the garden.
type MovingObstacle struct {
	id     int
	kind   ObstacleKind
	pos    grid.Position
	start  grid.Position
	garden *Garden
	policy MovePolicy
	log    *zap.Logger

	observers []MoveObserver
}

func newMovingObstacle(id int, kind ObstacleKind, pos grid.Position, g *Garden, policy MovePolicy, log *zap.Logger) *MovingObstacle {
	return &MovingObstacle{
		id:     id,
		kind:   kind,
		pos:    pos,
		start:  pos,
		garden: g,
		policy: policy,
		log:    log,
	}
}

func (o *MovingObstacle) ID() int                      { return o.id }
func (o *MovingObstacle) Kind() ObstacleKind           { return o.kind }
func (o *MovingObstacle) Position() grid.Position      { return o.pos }
func (o *MovingObstacle) StartPosition() grid.Position { return o.start }

func (o *MovingObstacle) Name() string {
	return fmt.Sprintf("%s#%d", o.kind, o.id)
}

// PossibleMoves returns the von Neumann moves in N, S, W, E order.
func (o *MovingObstacle) PossibleMoves() []grid.Direction {
	return grid.VonNeumann()
}

// AddObserver registers a move observer. Duplicates are ignored.
func (o *MovingObstacle) AddObserver(obs MoveObserver) bool {
	for _, existing := range o.observers {
		if existing == obs {
			return false
		}
	}
	o.observers = append(o.observers, obs)
	return true
}

// PerformMoveFromAvailable asks the policy for a move and performs it. A
// policy answer outside available falls back to the first available move.
func (o *MovingObstacle) PerformMoveFromAvailable(available []grid.Direction) {
	dir := o.policy.ChooseMove(o.garden, o, available)
	if !containsDirection(available, dir) {
		o.log.Warn("move policy returned unavailable move",
			zap.String("obstacle", o.Name()),
			zap.Stringer("move", dir))
		dir = available[0]
	}
	from := o.pos
	o.pos = from.Move(dir)
	o.notify(from)
}

func (o *MovingObstacle) notify(from grid.Position) {
	for _, obs := range o.observers {
		obs.EntityMoved(o, from, o.pos)
	}
}

func (o *MovingObstacle) EpisodeWillEnd(int) {}

func (o *MovingObstacle) EpisodeDidEnd(int) {
	from := o.pos
	o.pos = o.start
	o.notify(from)
}

func (o *MovingObstacle) EpisodeWillStart(int) {}
func (o *MovingObstacle) EpisodeDidStart(int)  {}

func containsDirection(dirs []grid.Direction, d grid.Direction) bool {
	for _, x := range dirs {
		if x == d {
			return true
		}
	}
	return false
}
