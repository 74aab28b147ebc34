package grid

import "fmt"

// Position is a discrete grid coordinate. Signed so that relative
// offsets can be added without casts.
type Position struct {
	X int
	Y int
}

// Pos is shorthand for Position{x, y}.
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add returns p shifted by the delta d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Move returns the position reached from p by one step in direction dir.
func (p Position) Move(dir Direction) Position {
	return p.Add(dir.Delta())
}

// Index returns the row-major index of p in a grid of the given width.
func (p Position) Index(width int) int {
	return p.Y*width + p.X
}

// InBounds reports whether p lies inside a width x height grid.
func (p Position) InBounds(width, height int) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
