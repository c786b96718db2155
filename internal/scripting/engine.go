package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for interactable object behavior.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. Core scripts load first so object scripts can use their
// helpers.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	corePath := filepath.Join(scriptsDir, "core")
	if err := e.loadDir(corePath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load core scripts: %w", err)
	}

	officePath := filepath.Join(scriptsDir, "office")
	if err := e.loadDir(officePath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load office scripts: %w", err)
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

// InteractContext holds pre-packed data for one interaction attempt.
type InteractContext struct {
	ObjectID string
	Type     string // chair, computer, board
	Name     string
	Username string
	Role     string
	X, Y     float64
}

// InteractResult is returned by the Lua on_interact function. A missing or
// failing script rejects the interaction.
type InteractResult struct {
	Accept  bool
	Anim    string // animation the client locks into, "" for none
	Message string // optional flavor text
}

// OnInteract calls the Lua on_interact function for an object.
func (e *Engine) OnInteract(ctx InteractContext) InteractResult {
	fn := e.vm.GetGlobal("on_interact")
	if fn == lua.LNil {
		e.log.Error("lua function on_interact not found")
		return InteractResult{}
	}

	t := e.vm.NewTable()
	t.RawSetString("object_id", lua.LString(ctx.ObjectID))
	t.RawSetString("type", lua.LString(ctx.Type))
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("username", lua.LString(ctx.Username))
	t.RawSetString("role", lua.LString(ctx.Role))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua on_interact error", zap.Error(err), zap.String("object", ctx.ObjectID))
		return InteractResult{}
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return InteractResult{}
	}

	return InteractResult{
		Accept:  rt.RawGetString("accept") == lua.LTrue,
		Anim:    lStr(rt, "anim"),
		Message: lStr(rt, "message"),
	}
}

// --- Lua helpers ---

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
