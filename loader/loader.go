// Package loader loads Lua scene content and JSON preset files into Go
// structs at load time. The Lua VM is discarded after loading; rules run
// as plain Go values.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/ecacore/engine/state"
	"github.com/nathoo/ecacore/pkg/logger"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	scene    *lua.LTable
	globals  []*lua.LTable
	entities []rawDef
	presets  []rawDef
	rules    []rawRule
}

// Option configures Load.
type Option func(*options)

type options struct {
	log *logrus.Entry
}

// WithLogger sets the entry validation warnings are logged to.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) { o.log = log }
}

// Load reads all .lua files from dir (scene.lua first), then every
// presets/*.json file, compiles them into scene definitions and validates
// them. All problems are reported together in a *ValidationError.
func Load(dir string, opts ...Option) (*state.Defs, error) {
	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithFields(logrus.Fields{"component": "loader", "dir": dir})

	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	ve := &ValidationError{}
	c := &compiler{ve: ve}
	defs := c.compile(coll)
	c.presetFiles(defs, filepath.Join(dir, "presets"))
	validate(defs, ve)

	for _, w := range ve.Warnings {
		log.Warn(w)
	}
	if len(ve.Errors) > 0 {
		return nil, fmt.Errorf("loading %s: %w", dir, ve)
	}
	log.WithFields(logrus.Fields{
		"entities": len(defs.Entities),
		"presets":  len(defs.Presets),
		"rules":    len(defs.Rules),
	}).Info("content loaded")
	return defs, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Remove math.randomseed to preserve determinism.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
