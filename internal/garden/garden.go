// Package garden holds the world state: tiles, the mower and the moving
// obstacles, and resolves one discrete time step at a time.
//
// A Garden is owned by a single goroutine. Nothing in this package locks.
package garden

import (
	"fmt"
	"math/rand"

	"github.com/smartmower/mower/internal/episode"
	"github.com/smartmower/mower/internal/grid"
	"go.uber.org/zap"
)

// Entity is anything that occupies a tile and can move.
type Entity interface {
	Name() string
	Position() grid.Position
}

// TileObserver is told about every mow status change, including the
// restores at an episode reset.
type TileObserver interface {
	TileStatusChanged(t *grid.Tile, old, new grid.MowStatus)
}

// MoveObserver is told about every position change of an entity.
type MoveObserver interface {
	EntityMoved(e Entity, from, to grid.Position)
}

// mover is an entity the garden asks for a move each step.
type mover interface {
	Entity
	PossibleMoves() []grid.Direction
	PerformMoveFromAvailable(available []grid.Direction)
}

// Learner picks the mower's actions and learns from their rewards.
type Learner interface {
	ChooseAction(available []grid.Direction) grid.Direction
	Learn(reward float64)
}

// LearnerFactory builds the mower's learner once the garden and mower
// exist. Receivers the learner registers with the controller are placed
// after the moving obstacles and before the mower.
type LearnerFactory func(g *Garden, m *Mower) (Learner, error)

// Options configures New.
type Options struct {
	MowReward     float64
	NotMownReward float64

	// NewLearner is required.
	NewLearner LearnerFactory

	// Policy moves the obstacles. Defaults to RandomPolicy over Rand.
	Policy MovePolicy
	Rand   *rand.Rand
	Log    *zap.Logger
}

// Garden is the grid world. Tiles are stored row-major (y*width+x).
type Garden struct {
	width         int
	height        int
	tiles         []*grid.Tile
	numGrassTiles int

	mower     *Mower
	statics   []StaticObstacle
	obstacles []*MovingObstacle

	ctrl      *episode.Controller
	observers []TileObserver

	// ending suppresses occupancy bookkeeping while the reset churn of an
	// episode boundary is in flight.
	ending bool

	log *zap.Logger
}

// New builds a garden from a layout and registers it, its mower and its
// obstacles with ctrl.
func New(layout *Layout, ctrl *episode.Controller, opts Options) (*Garden, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if opts.NewLearner == nil {
		return nil, fmt.Errorf("garden: no learner factory")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	policy := opts.Policy
	if policy == nil {
		rng := opts.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		policy = RandomPolicy{Rand: rng}
	}

	g := &Garden{
		width:  layout.Width,
		height: layout.Height,
		tiles:  make([]*grid.Tile, layout.Width*layout.Height),
		ctrl:   ctrl,
		log:    log,
	}
	for _, spec := range layout.Tiles {
		g.tiles[spec.Pos.Index(g.width)] = grid.NewTile(spec.Pos, spec.Status, spec.Pos == layout.MowerStart)
		if spec.Status == grid.LongGrass {
			g.numGrassTiles++
		}
		if spec.Static != NoStatic {
			g.statics = append(g.statics, StaticObstacle{Pos: spec.Pos, Kind: spec.Static})
		}
	}

	// 移動障礙物先註冊，順序即每步的移動順序
	for i, spec := range layout.Obstacles {
		o := newMovingObstacle(i+1, spec.Kind, spec.Pos, g, policy, log)
		g.tiles[spec.Pos.Index(g.width)].SetOccupied(true)
		o.AddObserver(g)
		ctrl.Register(o)
		g.obstacles = append(g.obstacles, o)
	}
	for _, t := range g.tiles {
		t.Snapshot()
	}

	g.mower = newMower(layout.MowerStart, g, opts.MowReward, opts.NotMownReward)
	learner, err := opts.NewLearner(g, g.mower)
	if err != nil {
		return nil, fmt.Errorf("create learner: %w", err)
	}
	g.mower.learner = learner
	g.mower.AddObserver(g)
	ctrl.Register(g.mower)
	ctrl.Register(g)

	log.Info("garden initialized",
		zap.Int("width", g.width),
		zap.Int("height", g.height),
		zap.Int("grass_tiles", g.numGrassTiles),
		zap.Int("moving_obstacles", len(g.obstacles)),
		zap.Int("static_obstacles", len(g.statics)))
	return g, nil
}

func (g *Garden) Width() int                         { return g.width }
func (g *Garden) Height() int                        { return g.height }
func (g *Garden) NumGrassTiles() int                 { return g.numGrassTiles }
func (g *Garden) Mower() *Mower                      { return g.mower }
func (g *Garden) MovingObstacles() []*MovingObstacle { return g.obstacles }
func (g *Garden) StaticObstacles() []StaticObstacle  { return g.statics }
func (g *Garden) Controller() *episode.Controller    { return g.ctrl }

// Tiles returns the tiles in row-major order. The slice must not be modified.
func (g *Garden) Tiles() []*grid.Tile { return g.tiles }

// IsValidPosition is a pure bounds check; occupancy is not considered.
func (g *Garden) IsValidPosition(p grid.Position) bool {
	return p.InBounds(g.width, g.height)
}

// Tile returns the tile at p, or nil when p is outside the garden.
func (g *Garden) Tile(p grid.Position) *grid.Tile {
	if !g.IsValidPosition(p) {
		return nil
	}
	return g.tiles[p.Index(g.width)]
}

// TileStatus returns the status at p. Positions outside the garden read
// as Obstacle.
func (g *Garden) TileStatus(p grid.Position) grid.MowStatus {
	t := g.Tile(p)
	if t == nil {
		return grid.Obstacle
	}
	return t.Status()
}

// SetTileStatus changes the status at p and notifies the tile observers.
// Invalid positions are ignored.
func (g *Garden) SetTileStatus(p grid.Position, status grid.MowStatus) {
	t := g.Tile(p)
	if t == nil {
		return
	}
	old := t.Status()
	t.SetStatus(status)
	for _, o := range g.observers {
		o.TileStatusChanged(t, old, status)
	}
}

// AddObserver registers a tile observer. Duplicates are ignored.
func (g *Garden) AddObserver(o TileObserver) bool {
	for _, existing := range g.observers {
		if existing == o {
			return false
		}
	}
	g.observers = append(g.observers, o)
	return true
}

// AddMoveObserver registers o with the mower and every moving obstacle.
// The garden's own occupancy bookkeeping always runs first.
func (g *Garden) AddMoveObserver(o MoveObserver) {
	for _, obs := range g.obstacles {
		obs.AddObserver(o)
	}
	g.mower.AddObserver(o)
}

// Step resolves one time step: every moving obstacle in registration
// order, then the mower. It reports whether the step finished the
// episode. Once the controller is finished Step does nothing.
func (g *Garden) Step() bool {
	if g.ctrl.Finished() {
		return false
	}
	for _, o := range g.obstacles {
		g.stepEntity(o)
	}
	g.stepEntity(g.mower)

	if g.mower.MowingFinished() {
		g.ctrl.Next()
		return true
	}
	return false
}

func (g *Garden) stepEntity(m mover) {
	if permitted := g.PermittedMoves(m.Position(), m.PossibleMoves()); len(permitted) > 0 {
		m.PerformMoveFromAvailable(permitted)
	}
}

// PermittedMoves filters moves down to those that land on an in-bounds,
// unoccupied, non-obstacle tile. The input order is preserved.
func (g *Garden) PermittedMoves(from grid.Position, moves []grid.Direction) []grid.Direction {
	permitted := make([]grid.Direction, 0, len(moves))
	for _, d := range moves {
		t := g.Tile(from.Move(d))
		if t == nil || t.Occupied() || !t.Passable() {
			continue
		}
		permitted = append(permitted, d)
	}
	return permitted
}

// EntityMoved keeps the occupied flags in sync with entity positions.
func (g *Garden) EntityMoved(e Entity, from, to grid.Position) {
	if g.ending {
		return
	}
	oldTile, newTile := g.Tile(from), g.Tile(to)
	if oldTile == nil || newTile == nil {
		g.log.Warn("entity moved illegally",
			zap.String("entity", e.Name()),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
		return
	}
	oldTile.SetOccupied(false)
	newTile.SetOccupied(true)
}

func (g *Garden) EpisodeWillEnd(int) {
	g.ending = true
}

func (g *Garden) EpisodeDidEnd(int) {
	for _, t := range g.tiles {
		t.SetOccupied(t.InitialOccupied())
		g.SetTileStatus(t.Position(), t.InitialStatus())
	}
}

func (g *Garden) EpisodeWillStart(int) {
	g.ending = false
}

func (g *Garden) EpisodeDidStart(int) {}

// Rows renders the garden as one string per row using the status codes,
// with M for the mower, A for animals and P for persons.
func (g *Garden) Rows() []string {
	rows := make([]string, g.height)
	buf := make([]byte, g.width)
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			buf[x] = g.tiles[y*g.width+x].Status().Code()
		}
		for _, o := range g.obstacles {
			if p := o.Position(); p.Y == y && g.IsValidPosition(p) {
				buf[p.X] = o.Kind().Code()
			}
		}
		if p := g.mower.Position(); p.Y == y && g.IsValidPosition(p) {
			buf[p.X] = 'M'
		}
		rows[y] = string(buf)
	}
	return rows
}
