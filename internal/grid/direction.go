package grid

import (
	"fmt"
	"strings"
)

// Direction is one of the eight compass moves. North is towards y = 0.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var directionDeltas = [...]Position{
	North:     {0, -1},
	NorthEast: {+1, -1},
	East:      {+1, 0},
	SouthEast: {+1, +1},
	South:     {0, +1},
	SouthWest: {-1, +1},
	West:      {-1, 0},
	NorthWest: {-1, -1},
}

var directionNames = [...]string{
	North:     "north",
	NorthEast: "north_east",
	East:      "east",
	SouthEast: "south_east",
	South:     "south",
	SouthWest: "south_west",
	West:      "west",
	NorthWest: "north_west",
}

// Delta returns the grid offset of one step in direction d.
func (d Direction) Delta() Position {
	if int(d) >= len(directionDeltas) {
		return Position{}
	}
	return directionDeltas[d]
}

// Valid reports whether d is one of the eight compass directions.
func (d Direction) Valid() bool {
	return int(d) < len(directionNames)
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the names produced by String, case-insensitive.
// "northeast" and "ne" style short forms are accepted as well.
func ParseDirection(s string) (Direction, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for d, name := range directionNames {
		if key == name || key == strings.ReplaceAll(name, "_", "") {
			return Direction(d), nil
		}
	}
	switch key {
	case "n":
		return North, nil
	case "ne":
		return NorthEast, nil
	case "e":
		return East, nil
	case "se":
		return SouthEast, nil
	case "s":
		return South, nil
	case "sw":
		return SouthWest, nil
	case "w":
		return West, nil
	case "nw":
		return NorthWest, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// VonNeumann returns the four moves available to mowing agents, in the
// order they are offered to a learner: N, S, W, E.
// A fresh slice is returned on each call.
func VonNeumann() []Direction {
	return []Direction{North, South, West, East}
}

// Neighbourhood returns all eight directions in clockwise order starting
// at North. It is the order used for state observation.
func Neighbourhood() []Direction {
	return []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}
}
