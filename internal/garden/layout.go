package garden

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smartmower/mower/internal/grid"
)

// ErrInvalidLayout is wrapped by every Layout validation error.
var ErrInvalidLayout = errors.New("invalid garden layout")

// StaticKind records what kind of static obstacle sits on a tile.
type StaticKind uint8

const (
	NoStatic StaticKind = iota
	Rock
	Water
)

func (k StaticKind) String() string {
	switch k {
	case Rock:
		return "rock"
	case Water:
		return "water"
	}
	return "none"
}

// ObstacleKind is the type of a moving obstacle.
type ObstacleKind uint8

const (
	Animal ObstacleKind = iota
	Person
)

func (k ObstacleKind) String() string {
	if k == Person {
		return "person"
	}
	return "animal"
}

// Code is the one-letter form used by Garden.Rows.
func (k ObstacleKind) Code() byte {
	if k == Person {
		return 'P'
	}
	return 'A'
}

// ParseObstacleKind accepts "animal" and "person", case-insensitive.
func ParseObstacleKind(s string) (ObstacleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "animal":
		return Animal, nil
	case "person":
		return Person, nil
	}
	return 0, fmt.Errorf("unknown moving obstacle type %q", s)
}

// TileSpec describes one tile of a garden definition.
type TileSpec struct {
	Pos    grid.Position
	Status grid.MowStatus
	Static StaticKind
}

// ObstacleSpec describes one moving obstacle and its start position.
type ObstacleSpec struct {
	Pos  grid.Position
	Kind ObstacleKind
}

// Layout is a complete, in-memory world definition.
type Layout struct {
	Width      int
	Height     int
	MowerStart grid.Position
	Tiles      []TileSpec
	Obstacles  []ObstacleSpec
}

// Validate checks the structural contract of a layout: exactly
// width*height tiles at unique in-bounds positions, static obstacles only
// on obstacle tiles, and no two entities sharing a tile.
func (l *Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidLayout, l.Width, l.Height)
	}
	if len(l.Tiles) != l.Width*l.Height {
		return fmt.Errorf("%w: found %d tiles, expecting %d", ErrInvalidLayout, len(l.Tiles), l.Width*l.Height)
	}
	seen := make([]bool, l.Width*l.Height)
	for _, t := range l.Tiles {
		if !t.Pos.InBounds(l.Width, l.Height) {
			return fmt.Errorf("%w: tile %v out of bounds", ErrInvalidLayout, t.Pos)
		}
		idx := t.Pos.Index(l.Width)
		if seen[idx] {
			return fmt.Errorf("%w: duplicate tile %v", ErrInvalidLayout, t.Pos)
		}
		seen[idx] = true
		if t.Status > grid.Obstacle {
			return fmt.Errorf("%w: tile %v has invalid status %d", ErrInvalidLayout, t.Pos, t.Status)
		}
		if t.Static != NoStatic && t.Status != grid.Obstacle {
			return fmt.Errorf("%w: static %s on non-obstacle tile %v", ErrInvalidLayout, t.Static, t.Pos)
		}
	}

	occupied := make([]bool, l.Width*l.Height)
	place := func(what string, p grid.Position) error {
		if !p.InBounds(l.Width, l.Height) {
			return fmt.Errorf("%w: %s at %v out of bounds", ErrInvalidLayout, what, p)
		}
		idx := p.Index(l.Width)
		if l.statusAt(p) == grid.Obstacle {
			return fmt.Errorf("%w: %s at %v stands on an obstacle", ErrInvalidLayout, what, p)
		}
		if occupied[idx] {
			return fmt.Errorf("%w: multiple objects positioned at %v", ErrInvalidLayout, p)
		}
		occupied[idx] = true
		return nil
	}
	if err := place("mower", l.MowerStart); err != nil {
		return err
	}
	for _, o := range l.Obstacles {
		if err := place(o.Kind.String(), o.Pos); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layout) statusAt(p grid.Position) grid.MowStatus {
	for _, t := range l.Tiles {
		if t.Pos == p {
			return t.Status
		}
	}
	return grid.Obstacle
}
