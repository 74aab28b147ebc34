package scripting

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/smartmower/mower/internal/garden"
	"github.com/smartmower/mower/internal/grid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM that drives the moving obstacles.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	rng *rand.Rand
	log *zap.Logger
}

var _ garden.MovePolicy = (*Engine)(nil)

// NewEngine creates a Lua engine and loads every script under
// scriptsDir/obstacles. A missing directory leaves all obstacles on the
// uniform random policy.
func NewEngine(scriptsDir string, rng *rand.Rand, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, rng: rng, log: log}
	// 腳本用的亂數走同一個種子
	vm.SetGlobal("rand_int", vm.NewFunction(e.luaRandInt))

	if err := e.loadDir(filepath.Join(scriptsDir, "obstacles")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load obstacle scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source in the engine's VM.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// rand_int(n) returns an integer in [1, n].
func (e *Engine) luaRandInt(L *lua.LState) int {
	n := L.CheckInt(1)
	if n <= 0 {
		L.ArgError(1, "n must be positive")
		return 0
	}
	L.Push(lua.LNumber(e.rng.Intn(n) + 1))
	return 1
}

// MoveContext is the data a script sees when asked for a move.
type MoveContext struct {
	Kind    string
	Name    string
	X, Y    int
	MowerX  int
	MowerY  int
	Width   int
	Height  int
	Episode int
	Moves   []grid.Direction
}

// ChooseMove asks choose_move_<kind> (or choose_move) for a move. The
// script returns a 1-based index into ctx.moves or a direction name.
// Anything unusable falls back to a uniform random pick.
func (e *Engine) ChooseMove(g *garden.Garden, o *garden.MovingObstacle, available []grid.Direction) grid.Direction {
	mower := g.Mower().Position()
	ctx := MoveContext{
		Kind:    o.Kind().String(),
		Name:    o.Name(),
		X:       o.Position().X,
		Y:       o.Position().Y,
		MowerX:  mower.X,
		MowerY:  mower.Y,
		Width:   g.Width(),
		Height:  g.Height(),
		Episode: g.Controller().Episode(),
		Moves:   available,
	}
	if d, ok := e.Choose(ctx); ok {
		return d
	}
	return available[e.rng.Intn(len(available))]
}

// Choose runs the script for ctx. false means no script handled it.
func (e *Engine) Choose(ctx MoveContext) (grid.Direction, bool) {
	fn := e.vm.GetGlobal("choose_move_" + ctx.Kind)
	if fn == lua.LNil {
		fn = e.vm.GetGlobal("choose_move")
	}
	if fn == lua.LNil {
		return 0, false
	}

	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("mower_x", lua.LNumber(ctx.MowerX))
	t.RawSetString("mower_y", lua.LNumber(ctx.MowerY))
	t.RawSetString("width", lua.LNumber(ctx.Width))
	t.RawSetString("height", lua.LNumber(ctx.Height))
	t.RawSetString("episode", lua.LNumber(ctx.Episode))

	moves := e.vm.NewTable()
	for _, d := range ctx.Moves {
		m := e.vm.NewTable()
		delta := d.Delta()
		m.RawSetString("name", lua.LString(d.String()))
		m.RawSetString("dx", lua.LNumber(delta.X))
		m.RawSetString("dy", lua.LNumber(delta.Y))
		moves.Append(m)
	}
	t.RawSetString("moves", moves)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua choose_move error", zap.String("obstacle", ctx.Name), zap.Error(err))
		return 0, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	switch v := result.(type) {
	case lua.LNumber:
		i := int(v)
		if i >= 1 && i <= len(ctx.Moves) {
			return ctx.Moves[i-1], true
		}
	case lua.LString:
		d, err := grid.ParseDirection(string(v))
		if err == nil {
			for _, m := range ctx.Moves {
				if m == d {
					return d, true
				}
			}
		}
	case *lua.LNilType:
		return 0, false
	}
	e.log.Warn("lua choose_move returned unusable move",
		zap.String("obstacle", ctx.Name),
		zap.String("result", result.String()))
	return 0, false
}

func (e *Engine) Close() {
	e.vm.Close()
}
