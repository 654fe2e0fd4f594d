// SPDX-License-Identifier: MPL-2.0

package luaengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/pipeline"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

func newEngine(t *testing.T, mods map[string]modpack.MapSource) *Engine {
	t.Helper()

	e, err := New(WithModFiles(func(name string) (modpack.Source, bool) {
		src, ok := mods[name]
		return src, ok
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func run(t *testing.T, e *Engine, mod string, files modpack.MapSource, source string) error {
	t.Helper()

	require.NoError(t, e.Bind(pipeline.Identity{ModName: mod, ModDir: "/mods/" + mod, Files: files}))
	return e.Execute(context.Background(), pipeline.ChunkName(mod, "data.lua"), []byte(source))
}

func document(t *testing.T, e *Engine) map[string]any {
	t.Helper()

	doc, err := e.Document()
	require.NoError(t, err)
	native, ok := doc.Native().(map[string]any)
	require.True(t, ok, "document should be a dictionary, got %v", doc.Kind())
	return native
}

func TestDataExtend(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	err := run(t, e, "base", nil, `
data:extend({
  {type = "item", name = "iron-plate", stack_size = 100},
  {type = "item", name = "copper-plate", stack_size = 100},
  {type = "recipe", name = "gear", ingredients = {{"iron-plate", 2}}},
})`)
	require.NoError(t, err)

	doc := document(t, e)
	items := doc["item"].(map[string]any)
	assert.Len(t, items, 2)
	assert.Equal(t, map[string]any{"type": "item", "name": "iron-plate", "stack_size": float64(100)}, items["iron-plate"])

	gear := doc["recipe"].(map[string]any)["gear"].(map[string]any)
	assert.Equal(t, []any{[]any{"iron-plate", float64(2)}}, gear["ingredients"])
}

func TestDataExtend_RejectsBadPrototypes(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not a table":  `data:extend("item")`,
		"missing name": `data:extend({{type = "item"}})`,
		"bad entry":    `data:extend({42})`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t, nil)
			assert.Error(t, run(t, e, "base", nil, src))
		})
	}
}

func TestExecute_SyntaxAndRuntimeErrors(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	err := run(t, e, "A", nil, `data:extend({`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "__A__/data.lua")

	err = run(t, e, "A", nil, `error("broken mod")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken mod")
}

func TestBind_PublishesIdentity(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	require.NoError(t, e.Bind(pipeline.Identity{ModName: "A", ModDir: "/mods/A", CurrentFile: "/mods/A/data.lua"}))
	require.NoError(t, e.Execute(context.Background(), "check", []byte(`
data:extend({{type = "probe", name = MOD_NAME, dir = MOD_DIR, file = CURRENT_FILE}})`)))

	probe := document(t, e)["probe"].(map[string]any)["A"].(map[string]any)
	assert.Equal(t, "/mods/A", probe["dir"])
	assert.Equal(t, "/mods/A/data.lua", probe["file"])
}

func TestSetGlobal_Settings(t *testing.T) {
	t.Parallel()

	setting := propertytree.NewDict()
	setting.Set("value", propertytree.Number(3))
	startup := propertytree.NewDict()
	startup.Set("stack-multiplier", propertytree.Dictionary(setting))
	tree := propertytree.NewDict()
	tree.Set("startup", propertytree.Dictionary(startup))

	e := newEngine(t, nil)
	require.NoError(t, e.SetGlobal("settings", propertytree.Dictionary(tree)))
	require.NoError(t, e.SetGlobal("mods", propertytree.List(propertytree.String("x"), propertytree.AbsentString())))

	require.NoError(t, run(t, e, "A", nil, `
local m = settings.startup["stack-multiplier"].value
data:extend({{type = "item", name = "plate", stack_size = 50 * m, mods = #mods}})`))

	plate := document(t, e)["item"].(map[string]any)["plate"].(map[string]any)
	assert.Equal(t, float64(150), plate["stack_size"])
	assert.Equal(t, float64(1), plate["mods"], "absent strings become nil")
}

func TestRequire_ResolutionOrder(t *testing.T) {
	t.Parallel()

	mods := map[string]modpack.MapSource{
		"core": {"lualib/util.lua": `return {name = "core-util"}`},
		"lib":  {"shared/api.lua": `return {name = "lib-api"}`},
	}
	own := modpack.MapSource{
		"prototypes/item.lua": `return {name = "own-item"}`,
		"util.lua":            `return {name = "own-util"}`,
	}

	tests := []struct {
		name   string
		files  modpack.MapSource
		module string
		want   string
	}{
		{name: "own module", files: own, module: "prototypes.item", want: "own-item"},
		{name: "own module by path", files: own, module: "prototypes/item", want: "own-item"},
		{name: "own file shadows lualib", files: own, module: "util", want: "own-util"},
		{name: "core lualib", files: modpack.MapSource{}, module: "util", want: "core-util"},
		{name: "other mod", files: own, module: "__lib__/shared/api", want: "lib-api"},
		{name: "other mod with extension", files: own, module: "__lib__/shared/api.lua", want: "lib-api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEngine(t, mods)
			require.NoError(t, run(t, e, "A", tt.files,
				`data:extend({{type = "probe", name = "result", value = require("`+tt.module+`").name}})`))

			probe := document(t, e)["probe"].(map[string]any)["result"].(map[string]any)
			assert.Equal(t, tt.want, probe["value"])
			assert.Equal(t, []string{tt.module}, e.Required())
		})
	}
}

func TestRequire_NotFound(t *testing.T) {
	t.Parallel()

	e := newEngine(t, map[string]modpack.MapSource{"core": {}})
	err := run(t, e, "A", modpack.MapSource{}, `require("missing.module")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.module")
	assert.Contains(t, err.Error(), "__A__/missing/module.lua")

	err = run(t, e, "A", modpack.MapSource{}, `require("__ghost__/thing")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "__ghost__/thing.lua")
}

func TestInvalidateModuleCache_IsolatesMods(t *testing.T) {
	t.Parallel()

	filesA := modpack.MapSource{"shared.lua": `return "from A"`}
	filesB := modpack.MapSource{"shared.lua": `return "from B"`}
	script := `data:extend({{type = "probe", name = MOD_NAME, value = require("shared")}})`

	probes := func(t *testing.T, invalidate bool) map[string]any {
		t.Helper()

		e := newEngine(t, nil)
		require.NoError(t, run(t, e, "A", filesA, script))
		if invalidate {
			require.NoError(t, e.InvalidateModuleCache())
		}
		require.NoError(t, run(t, e, "B", filesB, script))
		return document(t, e)["probe"].(map[string]any)
	}

	t.Run("without invalidation the cached module leaks", func(t *testing.T) {
		t.Parallel()

		got := probes(t, false)
		assert.Equal(t, "from A", got["B"].(map[string]any)["value"])
	})

	t.Run("with invalidation each mod loads its own module", func(t *testing.T) {
		t.Parallel()

		got := probes(t, true)
		assert.Equal(t, "from A", got["A"].(map[string]any)["value"])
		assert.Equal(t, "from B", got["B"].(map[string]any)["value"])
	})
}

func TestInvalidateModuleCache_KeepsStandardLibraries(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	require.NoError(t, e.InvalidateModuleCache())
	require.NoError(t, run(t, e, "A", nil, `
assert(package.loaded.string ~= nil)
assert(package.loaded.table ~= nil)
assert(string.format("%d", 3) == "3")`))
}

func TestResetTransientState(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	files := modpack.MapSource{"a.lua": `return 1`, "b.lua": `return require("a") + 1`}
	require.NoError(t, run(t, e, "A", files, `require("b")`))
	assert.Equal(t, []string{"b", "a"}, e.Required())

	require.NoError(t, e.ResetTransientState())
	assert.Empty(t, e.Required())
}

func TestHelpers(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	require.NoError(t, run(t, e, "A", nil, `
log("hello", 1)
data:extend({{type = "probe", name = "size", value = table_size({a = 1, b = 2, 3})}})`))

	probe := document(t, e)["probe"].(map[string]any)["size"].(map[string]any)
	assert.Equal(t, float64(3), probe["value"])
}

func TestDocument_DataReplaced(t *testing.T) {
	t.Parallel()

	e := newEngine(t, nil)
	require.NoError(t, run(t, e, "A", nil, `data = nil`))
	_, err := e.Document()
	assert.ErrorIs(t, err, ErrNoData)
}
