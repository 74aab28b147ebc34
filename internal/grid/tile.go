package grid

import (
	"fmt"
	"strings"
)

// MowStatus is what a tile currently holds from the mower's point of view.
type MowStatus uint8

const (
	ShortGrass MowStatus = iota
	LongGrass
	ChargingStation
	Obstacle
)

var statusNames = [...]string{
	ShortGrass:      "short_grass",
	LongGrass:       "long_grass",
	ChargingStation: "charging_station",
	Obstacle:        "obstacle",
}

// statusCodes are the one-letter forms used in compact keys and layouts.
var statusCodes = [...]byte{
	ShortGrass:      'S',
	LongGrass:       'L',
	ChargingStation: 'C',
	Obstacle:        'O',
}

func (s MowStatus) String() string {
	if int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Code returns the one-letter form of s.
func (s MowStatus) Code() byte {
	if int(s) >= len(statusCodes) {
		return '?'
	}
	return statusCodes[s]
}

// ParseMowStatus accepts the names produced by String.
func ParseMowStatus(s string) (MowStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, name := range statusNames {
		if key == name {
			return MowStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mow status %q", s)
}

// MowStatusFromCode is the inverse of Code.
func MowStatusFromCode(c byte) (MowStatus, error) {
	for i, code := range statusCodes {
		if c == code {
			return MowStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mow status code %q", c)
}

// MarshalText lets statuses appear by name in YAML and JSON.
func (s MowStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MowStatus) UnmarshalText(b []byte) error {
	v, err := ParseMowStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Tile is a single garden cell. Position never changes after creation.
// The initial (status, occupied) pair is captured once by Snapshot and
// restored by the garden at every episode reset.
type Tile struct {
	pos      Position
	status   MowStatus
	occupied bool

	initialStatus   MowStatus
	initialOccupied bool
}

// NewTile creates a tile and records its current state as the initial one.
func NewTile(pos Position, status MowStatus, occupied bool) *Tile {
	t := &Tile{pos: pos, status: status, occupied: occupied}
	t.Snapshot()
	return t
}

func (t *Tile) Position() Position        { return t.pos }
func (t *Tile) Status() MowStatus         { return t.status }
func (t *Tile) SetStatus(s MowStatus)     { t.status = s }
func (t *Tile) Occupied() bool            { return t.occupied }
func (t *Tile) SetOccupied(occupied bool) { t.occupied = occupied }
func (t *Tile) InitialStatus() MowStatus  { return t.initialStatus }
func (t *Tile) InitialOccupied() bool     { return t.initialOccupied }

// Snapshot stores the current state as the initial state.
func (t *Tile) Snapshot() {
	t.initialStatus = t.status
	t.initialOccupied = t.occupied
}

// Passable reports whether an entity may ever stand on t.
func (t *Tile) Passable() bool {
	return t.status != Obstacle
}

func (t *Tile) String() string {
	occ := ""
	if t.occupied {
		occ = " occupied"
	}
	return fmt.Sprintf("tile%s %s%s", t.pos, t.status, occ)
}
