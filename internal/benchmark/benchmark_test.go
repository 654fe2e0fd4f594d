// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/internal/discovery"
	"github.com/factoriotools/modloader/internal/engine/luaengine"
	"github.com/factoriotools/modloader/internal/engine/shellengine"
	"github.com/factoriotools/modloader/internal/testutil"
	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/pipeline"
	"github.com/factoriotools/modloader/pkg/propertytree"
	"github.com/factoriotools/modloader/pkg/version"
)

const (
	// modCount is the size of the generated mod pack. Each mod depends on
	// the two before it, so depths grow linearly.
	modCount = 40

	gameVersion = "1.1.110"

	sampleInfo = `{
	"name": "bench-mod",
	"version": "2.4.17",
	"title": "Benchmark mod",
	"author": "modloader",
	"factorio_version": "1.1",
	"dependencies": ["base >= 1.1.0", "? flib >= 0.12.0", "! other-mod", "(?) hidden", "~ order-only"]
}`
)

var dependencyStrings = []string{
	"base >= 1.1.0",
	"? bobplates",
	"! angelsrefining",
	"(?) space-exploration > 0.6",
	"~ flib = 0.12.9",
	"  ?  spaced-out   <= 2.0  ",
}

func modName(i int) string {
	return fmt.Sprintf("mod-%02d", i)
}

// newModPack installs core, base and modCount interdependent mods with
// both Lua and shell stage scripts, plus a settings file.
func newModPack(b *testing.B) *config.Config {
	b.Helper()

	game := testutil.NewGame(b)
	game.AddData(b, "core", map[string]string{
		"data.lua":        "-- core",
		"lualib/util.lua": "return {scale = function(n, f) return n * f end}",
	})
	game.AddData(b, "base", map[string]string{
		"info.json": `{"name": "base", "version": "` + gameVersion + `"}`,
		"data.lua":  `data:extend({{type = "item", name = "iron-plate", stack_size = 100}})`,
		"data.sh":   `data-extend item iron-plate stack_size=100`,
	})

	settings := make(map[string]float64, modCount)
	for i := range modCount {
		name := modName(i)
		deps := `"base"`
		for j := max(0, i-2); j < i; j++ {
			deps += `, "` + modName(j) + ` >= 1.0.0"`
		}
		files := map[string]string{
			"info.json": `{"name": "` + name + `", "version": "1.0.` + fmt.Sprint(i) + `", "dependencies": [` + deps + `]}`,
			"data.lua": `
local util = require("util")
local items = {}
for k = 1, 25 do
  items[k] = {type = "item", name = "` + name + `-item-" .. k, stack_size = util.scale(k, settings.startup["` + name + `-scale"].value)}
end
data:extend(items)`,
			"data-updates.lua": `data.raw.item["iron-plate"].stack_size = data.raw.item["iron-plate"].stack_size + 1`,
			"data.sh": `
for k in 1 2 3 4 5; do
  data-extend item "` + name + `-item-$k" stack_size=$k
done`,
			"data-updates.sh": `data-extend item ` + name + `-copy size="$(data-get item iron-plate stack_size)"`,
		}
		if i%2 == 0 {
			game.AddModFolder(b, name, files)
		} else {
			game.AddModArchive(b, fmt.Sprintf("%s_1.0.%d", name, i), files)
		}
		settings[name+"-scale"] = float64(i + 1)
	}
	game.WriteSettings(b, gameVersion, testutil.StartupSettings(settings))

	cfg := config.DefaultConfig()
	cfg.DataDir = game.DataDir
	cfg.ModsDir = game.ModsDir
	return cfg
}

// discover runs discovery and resolution once for setup.
func discover(b *testing.B, cfg *config.Config) (*discovery.Result, *modpack.Resolution) {
	b.Helper()

	res, err := discovery.New(cfg).Discover(context.Background())
	if err != nil {
		b.Fatalf("Discover failed: %v", err)
	}
	b.Cleanup(testutil.DeferClose(b, res.Registry))

	resolution, err := modpack.Resolve(res.Registry, modpack.ResolveOptions{GameVersion: res.GameVersion})
	if err != nil {
		b.Fatalf("Resolve failed: %v", err)
	}
	return res, resolution
}

// BenchmarkSettingsDecode benchmarks decoding mod-settings.dat.
// This exercises the hot path in pkg/propertytree/decode.go.
func BenchmarkSettingsDecode(b *testing.B) {
	settings := make(map[string]float64, 500)
	for i := range 500 {
		settings[fmt.Sprintf("setting-%03d", i)] = float64(i)
	}
	data := propertytree.EncodeSettings(propertytree.NewSettings(version.MustParse(gameVersion), testutil.StartupSettings(settings)))
	expected := version.MustParse(gameVersion)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for b.Loop() {
		if _, err := propertytree.DecodeSettings(data, expected); err != nil {
			b.Fatalf("DecodeSettings failed: %v", err)
		}
	}
}

// BenchmarkVersionCompare benchmarks parsing and comparing version tuples.
func BenchmarkVersionCompare(b *testing.B) {
	for b.Loop() {
		v1, err := version.Parse("1.1.110")
		if err != nil {
			b.Fatal(err)
		}
		v2, err := version.Parse("1.1.9")
		if err != nil {
			b.Fatal(err)
		}
		if v1.Compare(v2) <= 0 {
			b.Fatal("1.1.110 must be newer than 1.1.9")
		}
	}
}

// BenchmarkParseInfo benchmarks info.json validation against the CUE schema.
func BenchmarkParseInfo(b *testing.B) {
	data := []byte(sampleInfo)

	for b.Loop() {
		if _, err := modpack.ParseInfo(data, "info.json"); err != nil {
			b.Fatalf("ParseInfo failed: %v", err)
		}
	}
}

// BenchmarkParseDependencies benchmarks the dependency string grammar.
func BenchmarkParseDependencies(b *testing.B) {
	for b.Loop() {
		if _, err := modpack.ParseDependencies(dependencyStrings); err != nil {
			b.Fatalf("ParseDependencies failed: %v", err)
		}
	}
}

// BenchmarkDiscovery benchmarks scanning the data and mods directories.
func BenchmarkDiscovery(b *testing.B) {
	cfg := newModPack(b)
	disc := discovery.New(cfg)

	b.ResetTimer()
	for b.Loop() {
		res, err := disc.Discover(b.Context())
		if err != nil {
			b.Fatalf("Discover failed: %v", err)
		}
		_ = res.Registry.Close()
	}
}

// BenchmarkResolve benchmarks dependency validation and load ordering.
func BenchmarkResolve(b *testing.B) {
	res, _ := discover(b, newModPack(b))

	b.ResetTimer()
	for b.Loop() {
		resolution, err := modpack.Resolve(res.Registry, modpack.ResolveOptions{GameVersion: res.GameVersion})
		if err != nil {
			b.Fatalf("Resolve failed: %v", err)
		}
		if len(resolution.Order) != modCount+2 {
			b.Fatalf("load order has %d mods, want %d", len(resolution.Order), modCount+2)
		}
	}
}

// BenchmarkDataStageLua benchmarks a full data stage in gopher-lua.
// This exercises internal/engine/luaengine and pkg/pipeline.
func BenchmarkDataStageLua(b *testing.B) {
	benchmarkDataStage(b, config.EngineLua)
}

// BenchmarkDataStageShell benchmarks a full data stage in mvdan/sh.
// This exercises internal/engine/shellengine and pkg/pipeline.
func BenchmarkDataStageShell(b *testing.B) {
	benchmarkDataStage(b, config.EngineShell)
}

func benchmarkDataStage(b *testing.B, kind config.EngineKind) {
	cfg := newModPack(b)
	cfg.Engine = kind
	res, resolution := discover(b, cfg)

	settings, err := propertytree.DecodeSettings(mustReadSettings(b, cfg), res.GameVersion)
	if err != nil {
		b.Fatalf("DecodeSettings failed: %v", err)
	}

	logger := log.New(io.Discard)
	modFiles := func(name string) (modpack.Source, bool) {
		m, ok := res.Registry.Lookup(name)
		if !ok {
			return nil, false
		}
		return m.Files, true
	}

	b.ResetTimer()
	for b.Loop() {
		var engine pipeline.Engine
		switch kind {
		case config.EngineShell:
			engine, err = shellengine.New(shellengine.WithModFiles(modFiles), shellengine.WithLogger(logger))
		default:
			engine, err = luaengine.New(luaengine.WithModFiles(modFiles), luaengine.WithLogger(logger))
		}
		if err != nil {
			b.Fatalf("engine: %v", err)
		}

		orch := pipeline.New(engine, res.Registry, resolution.Order,
			pipeline.WithLogger(logger),
			pipeline.WithScriptExt(kind.ScriptExt()),
		)
		if err := orch.Prepare(settings.Tree); err != nil {
			b.Fatalf("Prepare failed: %v", err)
		}
		if err := orch.Run(b.Context()); err != nil {
			b.Fatalf("Run failed: %v", err)
		}
		if _, err := engine.Document(); err != nil {
			b.Fatalf("Document failed: %v", err)
		}
		_ = engine.Close()
	}
}

func mustReadSettings(b *testing.B, cfg *config.Config) []byte {
	b.Helper()
	data, err := os.ReadFile(cfg.ModSettingsPath())
	if err != nil {
		b.Fatalf("read settings: %v", err)
	}
	return data
}
