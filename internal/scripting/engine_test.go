package scripting

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartmower/mower/internal/grid"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T, dir string) *Engine {
	t.Helper()
	e, err := NewEngine(dir, rand.New(rand.NewSource(42)), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestMissingDirectory(t *testing.T) {
	e := newTestEngine(t, filepath.Join(t.TempDir(), "nothing"))
	if _, ok := e.Choose(MoveContext{Kind: "animal", Moves: grid.VonNeumann()}); ok {
		t.Fatal("Choose without scripts reported ok")
	}
}

func TestShippedScripts(t *testing.T) {
	e := newTestEngine(t, "../../scripts")
	moves := []grid.Direction{grid.North, grid.South, grid.West, grid.East}

	// the person at (2,2) with the mower at (0,2) moves away
	d, ok := e.Choose(MoveContext{Kind: "person", Name: "person#1", X: 2, Y: 2, MowerX: 0, MowerY: 2, Width: 6, Height: 5, Moves: []grid.Direction{grid.West, grid.East}})
	if !ok || d != grid.East {
		t.Fatalf("person move = %v, %v; want east", d, ok)
	}

	for i := 0; i < 20; i++ {
		d, ok := e.Choose(MoveContext{Kind: "animal", Name: "animal#1", X: 3, Y: 0, MowerX: 3, MowerY: 4, Width: 6, Height: 5, Moves: moves})
		if !ok {
			t.Fatal("animal script did not answer")
		}
		if !containsDir(moves, d) {
			t.Fatalf("animal chose unavailable %v", d)
		}
	}
}

func TestScriptResults(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "obstacles"), 0o755); err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, dir)
	moves := []grid.Direction{grid.South, grid.West}

	tests := []struct {
		src  string
		want grid.Direction
		ok   bool
	}{
		{`function choose_move(ctx) return 2 end`, grid.West, true},
		{`function choose_move(ctx) return "south" end`, grid.South, true},
		{`function choose_move(ctx) return "north" end`, 0, false}, // not available
		{`function choose_move(ctx) return 7 end`, 0, false},
		{`function choose_move(ctx) return nil end`, 0, false},
		{`function choose_move(ctx) error("boom") end`, 0, false},
		{`function choose_move(ctx) return ctx.moves[1].name end`, grid.South, true},
	}
	for _, tt := range tests {
		if err := e.LoadString(tt.src); err != nil {
			t.Fatalf("LoadString(%q): %v", tt.src, err)
		}
		d, ok := e.Choose(MoveContext{Kind: "robot", Name: "robot#1", Moves: moves})
		if ok != tt.ok || (ok && d != tt.want) {
			t.Errorf("%s: got %v, %v; want %v, %v", tt.src, d, ok, tt.want, tt.ok)
		}
	}
}

func TestKindSpecificFunctionWins(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	if err := e.LoadString(`
function choose_move(ctx) return 1 end
function choose_move_person(ctx) return 2 end
`); err != nil {
		t.Fatal(err)
	}
	moves := []grid.Direction{grid.North, grid.East}
	if d, _ := e.Choose(MoveContext{Kind: "person", Moves: moves}); d != grid.East {
		t.Errorf("person got %v, want east", d)
	}
	if d, _ := e.Choose(MoveContext{Kind: "animal", Moves: moves}); d != grid.North {
		t.Errorf("animal got %v, want north", d)
	}
}

func containsDir(ds []grid.Direction, d grid.Direction) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}
