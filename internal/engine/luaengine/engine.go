// SPDX-License-Identifier: MPL-2.0

package luaengine

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/pipeline"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

const (
	// lualibDir is where core keeps the shared Lua libraries.
	lualibDir = "lualib"
	// searcherIndex replaces gopher-lua's filesystem loader, keeping the
	// preload loader at index 1.
	searcherIndex = 2
)

//go:embed prelude.lua
var prelude string

// ErrNoData is returned by Document when a script replaced data or data.raw.
var ErrNoData = errors.New("data.raw is not a table")

type (
	// ModFiles returns the files of an enabled mod.
	ModFiles func(name string) (modpack.Source, bool)

	// Option configures an Engine.
	Option func(*Engine)

	// Engine is a Lua session implementing pipeline.Engine. It is not safe for
	// concurrent use.
	Engine struct {
		state    *lua.LState
		mods     ModFiles
		logger   *log.Logger
		id       pipeline.Identity
		baseline map[string]bool
		// required lists the modules loaded since the last ResetTransientState.
		required []string
	}
)

var _ pipeline.Engine = (*Engine)(nil)

// WithModFiles lets require reach "__modname__/" paths and core's lualib.
func WithModFiles(fn ModFiles) Option {
	return func(e *Engine) {
		e.mods = fn
	}
}

// WithLogger receives the output of the Lua log function.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates a Lua session with the data loader installed.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		state:  lua.NewState(),
		mods:   func(string) (modpack.Source, bool) { return nil, false },
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	L := e.state
	loaders, ok := L.GetField(L.Get(lua.RegistryIndex), "_LOADERS").(*lua.LTable)
	if !ok {
		L.Close()
		return nil, errors.New("package.loaders is not a table")
	}
	L.RawSetInt(loaders, searcherIndex, L.NewFunction(e.searchModule))
	for i := searcherIndex + 1; i <= loaders.Len(); i++ {
		L.RawSetInt(loaders, i, lua.LNil)
	}

	L.SetGlobal("log", L.NewFunction(e.luaLog))
	L.SetGlobal("table_size", L.NewFunction(tableSize))

	if err := L.DoString(prelude); err != nil {
		L.Close()
		return nil, fmt.Errorf("load data prelude: %w", err)
	}

	e.baseline = make(map[string]bool)
	e.loaded().ForEach(func(k, _ lua.LValue) {
		e.baseline[k.String()] = true
	})
	return e, nil
}

// SetGlobal implements pipeline.Engine.
func (e *Engine) SetGlobal(name string, value propertytree.Value) error {
	e.state.SetGlobal(name, toLua(e.state, value))
	return nil
}

// Bind implements pipeline.Engine. The identity is also published as the
// MOD_NAME, MOD_DIR and CURRENT_FILE globals.
func (e *Engine) Bind(id pipeline.Identity) error {
	e.id = id
	e.state.SetGlobal("MOD_NAME", lua.LString(id.ModName))
	e.state.SetGlobal("MOD_DIR", lua.LString(id.ModDir))
	e.state.SetGlobal("CURRENT_FILE", lua.LString(id.CurrentFile))
	return nil
}

// Execute implements pipeline.Engine.
func (e *Engine) Execute(ctx context.Context, chunkName string, source []byte) error {
	L := e.state
	L.SetContext(ctx)
	defer L.RemoveContext()

	fn, err := L.Load(bytes.NewReader(source), chunkName)
	if err != nil {
		return err
	}
	L.Push(fn)
	return L.PCall(0, 0, nil)
}

// InvalidateModuleCache drops every package.loaded entry added since the
// session started.
func (e *Engine) InvalidateModuleCache() error {
	loaded := e.loaded()
	var stale []lua.LValue
	loaded.ForEach(func(k, _ lua.LValue) {
		if !e.baseline[k.String()] {
			stale = append(stale, k)
		}
	})
	for _, k := range stale {
		e.state.RawSet(loaded, k, lua.LNil)
	}
	return nil
}

// ResetTransientState clears the list of modules required by the last mod.
func (e *Engine) ResetTransientState() error {
	if len(e.required) > 0 {
		e.logger.Debug("unloaded modules", "mod", e.id.ModName, "modules", strings.Join(e.required, ", "))
	}
	e.required = nil
	return nil
}

// Required returns the modules loaded since the last ResetTransientState, in
// load order.
func (e *Engine) Required() []string {
	return slices.Clone(e.required)
}

// Document converts data.raw into a property tree.
func (e *Engine) Document() (propertytree.Value, error) {
	data, ok := e.state.GetGlobal("data").(*lua.LTable)
	if !ok {
		return propertytree.Value{}, ErrNoData
	}
	raw, ok := data.RawGetString("raw").(*lua.LTable)
	if !ok {
		return propertytree.Value{}, ErrNoData
	}
	return fromLua(raw)
}

// Close implements pipeline.Engine.
func (e *Engine) Close() error {
	e.state.Close()
	return nil
}

func (e *Engine) loaded() *lua.LTable {
	return e.state.GetField(e.state.Get(lua.RegistryIndex), "_LOADED").(*lua.LTable)
}

// searchModule is a package.loaders entry. It returns the compiled chunk, or a
// message explaining where it looked.
func (e *Engine) searchModule(L *lua.LState) int {
	name := L.CheckString(1)

	var tried []string
	for _, c := range e.candidates(name) {
		if c.files == nil {
			tried = append(tried, "no file '"+c.display+"'")
			continue
		}
		data, err := c.files.ReadFile(c.path)
		if err != nil {
			tried = append(tried, "no file '"+c.display+"'")
			continue
		}
		fn, err := L.Load(bytes.NewReader(data), c.display)
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
		e.required = append(e.required, name)
		L.Push(fn)
		return 1
	}
	L.Push(lua.LString("\n\t" + strings.Join(tried, "\n\t")))
	return 1
}

type candidate struct {
	files   modpack.Source
	path    string
	display string
}

// candidates lists where require(name) may be found, in priority order.
func (e *Engine) candidates(name string) []candidate {
	file := modulePath(name)

	if rest, ok := strings.CutPrefix(file, "__"); ok {
		if mod, rel, found := strings.Cut(rest, "__/"); found {
			return []candidate{{files: e.modFiles(mod), path: rel, display: "__" + mod + "__/" + rel}}
		}
	}

	return []candidate{
		{files: e.id.Files, path: file, display: "__" + e.id.ModName + "__/" + file},
		{files: e.modFiles(modpack.CoreMod), path: path.Join(lualibDir, file), display: "__core__/" + lualibDir + "/" + file},
	}
}

func (e *Engine) modFiles(name string) modpack.Source {
	if files, ok := e.mods(name); ok {
		return files
	}
	return nil
}

// modulePath maps "prototypes.item" to "prototypes/item.lua". Names that are
// already paths keep their slashes.
func modulePath(name string) string {
	name = strings.TrimSuffix(name, ".lua")
	if !strings.Contains(name, "/") {
		name = strings.ReplaceAll(name, ".", "/")
	}
	return name + ".lua"
}

func (e *Engine) luaLog(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	e.logger.Info(strings.Join(parts, "\t"), "mod", e.id.ModName)
	return 0
}

func tableSize(L *lua.LState) int {
	n := 0
	L.CheckTable(1).ForEach(func(_, _ lua.LValue) { n++ })
	L.Push(lua.LNumber(n))
	return 1
}
