// Package script compiles card effect bodies written in Lua into engine
// scripts.
//
// A script file defines a global function resolve(). While it runs, the
// global table ctx exposes the effect's script surface:
//
//	ctx.source(), ctx.controller(), ctx.opponent(), ctx.targets()
//	ctx.move_card(id, zone)
//	ctx.modify_power(id, delta [, duration])
//	ctx.modify_cost(id, delta [, duration])
//	ctx.draw_cards(player, n)
//	ctx.search_zone(player, zone [, filter])
//	ctx.rest_card(id), ctx.activate_card(id), ctx.knock_out(id)
//	ctx.set_permanent_removal(id), ctx.set_face_up(id [, up])
//	ctx.attach_resources(id, n)
//	ctx.choose_targets(candidates, min, max), ctx.choose_value(key, min, max)
//	ctx.power(id), ctx.cost(id), ctx.life(player), ctx.zone(id)
//
// A helper failure raises a Lua error, which fails the whole resolution.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/opcg/rules-engine-go/internal/game/engine"
)

// entryPoint is the global function every script must define.
const entryPoint = "resolve"

// ErrNoEntryPoint is returned when a script does not define resolve().
var ErrNoEntryPoint = errors.New("script does not define " + entryPoint + "()")

// Compiled is a compiled script and the ID it registers under.
type Compiled struct {
	ID     string
	Path   string
	Script engine.Script
}

// Compile checks src once and returns a script that runs it in a fresh
// Lua state per resolution, so no Lua globals carry over between effects.
func Compile(id, src string) (engine.Script, error) {
	l := lua.NewState()
	if err := load(l, id, src); err != nil {
		return nil, err
	}

	return func(ctx context.Context, sc *engine.ScriptContext) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		l := lua.NewState()
		if err := load(l, id, src); err != nil {
			return err
		}
		bind(l, sc)
		l.Global(entryPoint)
		if err := l.ProtectedCall(0, 0, 0); err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		return nil
	}, nil
}

// load runs the chunk (defining its globals) and checks for the entry point.
func load(l *lua.State, id, src string) error {
	lua.OpenLibraries(l)
	if err := lua.LoadBuffer(l, src, id, "text"); err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return fmt.Errorf("load %s: %w", id, err)
	}
	l.Global(entryPoint)
	defer l.Pop(1)
	if !l.IsFunction(-1) {
		return fmt.Errorf("%w: %s", ErrNoEntryPoint, id)
	}
	return nil
}

// LoadDir compiles every *.lua file in dir. A script's ID is its file
// name without the extension. Results are sorted by ID.
func LoadDir(dir string) ([]Compiled, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []Compiled
	var errs []error
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fn, err := Compile(id, string(src))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, Compiled{ID: id, Path: path, Script: fn})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Registrar is what scripts are registered with.
type Registrar interface {
	RegisterScript(id string, fn engine.Script) error
}

// RegisterAll registers every compiled script, stopping at the first
// failure (usually engine.ErrDuplicateScript).
func RegisterAll(r Registrar, scripts []Compiled) error {
	for _, s := range scripts {
		if err := r.RegisterScript(s.ID, s.Script); err != nil {
			return fmt.Errorf("register %s: %w", s.Path, err)
		}
	}
	return nil
}
