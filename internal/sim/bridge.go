package sim

import (
	"github.com/smartmower/mower/internal/core/event"
	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/grid"
)

// bridge forwards garden and episode notifications onto the event bus.
type bridge struct {
	bus *event.Bus
}

func (b *bridge) TileStatusChanged(t *grid.Tile, old, new grid.MowStatus) {
	event.Emit(b.bus, event.TileStatusChanged{Pos: t.Position(), Old: old, New: new})
}

func (b *bridge) EntityMoved(e garden.Entity, from, to grid.Position) {
	event.Emit(b.bus, event.EntityMoved{Entity: e.Name(), From: from, To: to})
}

func (b *bridge) EpisodeWillEnd(ep int)   { b.phase(event.EpisodeWillEnd, ep) }
func (b *bridge) EpisodeDidEnd(ep int)    { b.phase(event.EpisodeDidEnd, ep) }
func (b *bridge) EpisodeWillStart(ep int) { b.phase(event.EpisodeWillStart, ep) }
func (b *bridge) EpisodeDidStart(ep int)  { b.phase(event.EpisodeDidStart, ep) }

func (b *bridge) phase(p string, ep int) {
	event.Emit(b.bus, event.EpisodeChanged{Phase: p, Episode: ep})
}
