package data

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/grid"
	"gopkg.in/yaml.v3"
)

// ErrInvalidGarden is wrapped by every garden definition error.
var ErrInvalidGarden = errors.New("invalid garden definition")

// XY is a position in a garden file.
type XY struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// TileEntry is one tile of the explicit tile list form.
type TileEntry struct {
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Type string `yaml:"type"`
}

// ObstacleEntry is one moving obstacle.
type ObstacleEntry struct {
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Type string `yaml:"type"` // animal, person
}

// GardenFile is the YAML form of a garden. Tiles come either as rows of
// one-letter codes (L long grass, S short grass, C charging station,
// R rock, W water, O bare obstacle) or as an explicit tile list, never both.
type GardenFile struct {
	Name            string          `yaml:"name,omitempty"`
	Width           int             `yaml:"width"`
	Height          int             `yaml:"height"`
	MowerStart      XY              `yaml:"mower_start"`
	Rows            []string        `yaml:"layout,omitempty"`
	Tiles           []TileEntry     `yaml:"tiles,omitempty"`
	MovingObstacles []ObstacleEntry `yaml:"moving_obstacles,omitempty"`
}

// LoadGarden reads and validates a garden definition.
func LoadGarden(path string) (*garden.Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("garden: read %s: %w", path, err)
	}
	l, err := ParseGarden(raw)
	if err != nil {
		return nil, fmt.Errorf("garden %s: %w", path, err)
	}
	return l, nil
}

// ParseGarden decodes and validates YAML garden text.
func ParseGarden(raw []byte) (*garden.Layout, error) {
	var f GardenFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGarden, err)
	}
	return f.Layout()
}

// Layout converts f into a validated garden layout.
func (f *GardenFile) Layout() (*garden.Layout, error) {
	l := &garden.Layout{
		Width:      f.Width,
		Height:     f.Height,
		MowerStart: grid.Pos(f.MowerStart.X, f.MowerStart.Y),
	}

	switch {
	case len(f.Rows) > 0 && len(f.Tiles) > 0:
		return nil, fmt.Errorf("%w: both layout rows and a tile list given", ErrInvalidGarden)
	case len(f.Rows) > 0:
		if len(f.Rows) != f.Height {
			return nil, fmt.Errorf("%w: %d layout rows, expecting %d", ErrInvalidGarden, len(f.Rows), f.Height)
		}
		for y, row := range f.Rows {
			if len(row) != f.Width {
				return nil, fmt.Errorf("%w: layout row %d has %d tiles, expecting %d", ErrInvalidGarden, y, len(row), f.Width)
			}
			for x := 0; x < len(row); x++ {
				spec, err := tileFromCode(grid.Pos(x, y), row[x])
				if err != nil {
					return nil, err
				}
				l.Tiles = append(l.Tiles, spec)
			}
		}
	default:
		for _, t := range f.Tiles {
			spec, err := tileFromType(grid.Pos(t.X, t.Y), t.Type)
			if err != nil {
				return nil, err
			}
			l.Tiles = append(l.Tiles, spec)
		}
	}

	for _, o := range f.MovingObstacles {
		kind, err := garden.ParseObstacleKind(o.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGarden, err)
		}
		l.Obstacles = append(l.Obstacles, garden.ObstacleSpec{Pos: grid.Pos(o.X, o.Y), Kind: kind})
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGarden, err)
	}
	return l, nil
}

// tile type names; legacy names like "Long grass" normalise onto these
const (
	TypeLongGrass       = "long_grass"
	TypeShortGrass      = "short_grass"
	TypeRock            = "rock"
	TypeWater           = "water"
	TypeChargingStation = "charging_station"
	TypeObstacle        = "obstacle"
)

// NormalizeTileType lower-cases s and replaces blanks with underscores.
func NormalizeTileType(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func tileFromType(p grid.Position, typ string) (garden.TileSpec, error) {
	spec := garden.TileSpec{Pos: p}
	switch NormalizeTileType(typ) {
	case TypeLongGrass:
		spec.Status = grid.LongGrass
	case TypeShortGrass:
		spec.Status = grid.ShortGrass
	case TypeChargingStation:
		spec.Status = grid.ChargingStation
	case TypeRock:
		spec.Status, spec.Static = grid.Obstacle, garden.Rock
	case TypeWater:
		spec.Status, spec.Static = grid.Obstacle, garden.Water
	case TypeObstacle:
		spec.Status = grid.Obstacle
	default:
		return spec, fmt.Errorf("%w: tile %v has unknown type %q", ErrInvalidGarden, p, typ)
	}
	return spec, nil
}

func tileFromCode(p grid.Position, c byte) (garden.TileSpec, error) {
	switch c {
	case 'L':
		return tileFromType(p, TypeLongGrass)
	case 'S':
		return tileFromType(p, TypeShortGrass)
	case 'C':
		return tileFromType(p, TypeChargingStation)
	case 'R':
		return tileFromType(p, TypeRock)
	case 'W':
		return tileFromType(p, TypeWater)
	case 'O':
		return tileFromType(p, TypeObstacle)
	}
	return garden.TileSpec{}, fmt.Errorf("%w: tile %v has unknown code %q", ErrInvalidGarden, p, c)
}

// NewGardenFile renders a layout in the compact row form.
func NewGardenFile(name string, l *garden.Layout) *GardenFile {
	rows := make([][]byte, l.Height)
	for y := range rows {
		rows[y] = []byte(strings.Repeat("L", l.Width))
	}
	for _, t := range l.Tiles {
		if !t.Pos.InBounds(l.Width, l.Height) {
			continue
		}
		c := t.Status.Code()
		switch t.Static {
		case garden.Rock:
			c = 'R'
		case garden.Water:
			c = 'W'
		}
		rows[t.Pos.Y][t.Pos.X] = c
	}

	f := &GardenFile{
		Name:       name,
		Width:      l.Width,
		Height:     l.Height,
		MowerStart: XY{X: l.MowerStart.X, Y: l.MowerStart.Y},
	}
	for _, r := range rows {
		f.Rows = append(f.Rows, string(r))
	}
	for _, o := range l.Obstacles {
		f.MovingObstacles = append(f.MovingObstacles, ObstacleEntry{X: o.Pos.X, Y: o.Pos.Y, Type: o.Kind.String()})
	}
	return f
}
