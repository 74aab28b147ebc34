package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/grid"
	"gopkg.in/yaml.v3"
)

const rowsGarden = `
name: small
width: 3
height: 2
mower_start: {x: 0, y: 0}
layout:
  - CLR
  - LWS
moving_obstacles:
  - {x: 0, y: 1, type: animal}
`

func TestParseGardenRows(t *testing.T) {
	l, err := ParseGarden([]byte(rowsGarden))
	if err != nil {
		t.Fatalf("ParseGarden: %v", err)
	}
	if l.Width != 3 || l.Height != 2 || len(l.Tiles) != 6 {
		t.Fatalf("layout %dx%d with %d tiles", l.Width, l.Height, len(l.Tiles))
	}
	want := map[grid.Position]garden.TileSpec{
		grid.Pos(0, 0): {Status: grid.ChargingStation},
		grid.Pos(2, 0): {Status: grid.Obstacle, Static: garden.Rock},
		grid.Pos(1, 1): {Status: grid.Obstacle, Static: garden.Water},
		grid.Pos(2, 1): {Status: grid.ShortGrass},
		grid.Pos(0, 1): {Status: grid.LongGrass},
	}
	for _, ts := range l.Tiles {
		w, ok := want[ts.Pos]
		if !ok {
			continue
		}
		if ts.Status != w.Status || ts.Static != w.Static {
			t.Errorf("tile %v = %s/%s, want %s/%s", ts.Pos, ts.Status, ts.Static, w.Status, w.Static)
		}
	}
	if len(l.Obstacles) != 1 || l.Obstacles[0].Kind != garden.Animal || l.Obstacles[0].Pos != grid.Pos(0, 1) {
		t.Fatalf("obstacles = %+v", l.Obstacles)
	}
}

func TestParseGardenTileList(t *testing.T) {
	src := `
width: 2
height: 1
mower_start: {x: 1, y: 0}
tiles:
  - {x: 0, y: 0, type: "Long grass"}
  - {x: 1, y: 0, type: charging_station}
`
	l, err := ParseGarden([]byte(src))
	if err != nil {
		t.Fatalf("ParseGarden: %v", err)
	}
	if l.Tiles[0].Status != grid.LongGrass || l.Tiles[1].Status != grid.ChargingStation {
		t.Fatalf("tiles = %+v", l.Tiles)
	}
}

func TestParseGardenInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "width: [",
		"short row":      "width: 3\nheight: 1\nmower_start: {x: 0, y: 0}\nlayout: [LL]\n",
		"row count":      "width: 1\nheight: 2\nmower_start: {x: 0, y: 0}\nlayout: [L]\n",
		"unknown code":   "width: 1\nheight: 1\nmower_start: {x: 0, y: 0}\nlayout: [X]\n",
		"unknown type":   "width: 1\nheight: 1\nmower_start: {x: 0, y: 0}\ntiles: [{x: 0, y: 0, type: lava}]\n",
		"missing tile":   "width: 2\nheight: 1\nmower_start: {x: 0, y: 0}\ntiles: [{x: 0, y: 0, type: long_grass}]\n",
		"mower on rock":  "width: 2\nheight: 1\nmower_start: {x: 0, y: 0}\nlayout: [RL]\n",
		"both forms":     "width: 1\nheight: 1\nmower_start: {x: 0, y: 0}\nlayout: [L]\ntiles: [{x: 0, y: 0, type: long_grass}]\n",
		"shared tile":    "width: 2\nheight: 1\nmower_start: {x: 0, y: 0}\nlayout: [LL]\nmoving_obstacles: [{x: 0, y: 0, type: person}]\n",
		"unknown animal": "width: 2\nheight: 1\nmower_start: {x: 0, y: 0}\nlayout: [LL]\nmoving_obstacles: [{x: 1, y: 0, type: robot}]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseGarden([]byte(src))
			if !errors.Is(err, ErrInvalidGarden) {
				t.Fatalf("err = %v, want ErrInvalidGarden", err)
			}
		})
	}
}

func TestLoadGarden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.yaml")
	if err := os.WriteFile(path, []byte(rowsGarden), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGarden(path); err != nil {
		t.Fatalf("LoadGarden: %v", err)
	}
	if _, err := LoadGarden(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("LoadGarden of a missing file succeeded")
	}
}

func TestNewGardenFileRoundTrip(t *testing.T) {
	l, err := ParseGarden([]byte(rowsGarden))
	if err != nil {
		t.Fatal(err)
	}
	out, err := yaml.Marshal(NewGardenFile("small", l))
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseGarden(out)
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, out)
	}
	for i := range l.Tiles {
		if l.Tiles[i] != back.Tiles[i] {
			t.Fatalf("tile %d = %+v, want %+v", i, back.Tiles[i], l.Tiles[i])
		}
	}
}

func TestBareObstacleRoundTrip(t *testing.T) {
	l := &garden.Layout{
		Width:      2,
		Height:     1,
		MowerStart: grid.Pos(0, 0),
		Tiles: []garden.TileSpec{
			{Pos: grid.Pos(0, 0), Status: grid.ChargingStation},
			{Pos: grid.Pos(1, 0), Status: grid.Obstacle},
		},
	}
	f := NewGardenFile("bare", l)
	if len(f.Rows) != 1 || f.Rows[0] != "CO" {
		t.Fatalf("rows = %q, want [CO]", f.Rows)
	}
	out, err := yaml.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseGarden(out)
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, out)
	}
	for i := range l.Tiles {
		if l.Tiles[i] != back.Tiles[i] {
			t.Fatalf("tile %d = %+v, want %+v", i, back.Tiles[i], l.Tiles[i])
		}
	}
}

func TestShippedGardens(t *testing.T) {
	paths, _ := filepath.Glob("../../data/gardens/*.yaml")
	if len(paths) == 0 {
		t.Skip("no shipped gardens")
	}
	for _, p := range paths {
		if _, err := LoadGarden(p); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}
}
