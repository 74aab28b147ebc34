package event

import "github.com/smartmower/mower/internal/grid"

// Episode phases carried by EpisodeChanged.
const (
	EpisodeWillEnd   = "will_end"
	EpisodeDidEnd    = "did_end"
	EpisodeWillStart = "will_start"
	EpisodeDidStart  = "did_start"
)

type TileStatusChanged struct {
	Pos grid.Position
	Old grid.MowStatus
	New grid.MowStatus
}

type EntityMoved struct {
	Entity string
	From   grid.Position
	To     grid.Position
}

type EpisodeChanged struct {
	Phase   string
	Episode int
}

// TickCompleted is emitted once per runner tick after the garden stepped.
// Step counts the steps of the current episode.
type TickCompleted struct {
	Tick    uint64
	Episode int
	Step    int
}
