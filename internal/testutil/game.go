// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"testing"

	"golang.org/x/exp/maps"

	"github.com/factoriotools/modloader/pkg/propertytree"
	"github.com/factoriotools/modloader/pkg/version"
)

// Game is a temporary installation: DataDir holds core and base, ModsDir
// holds user mods, mod-list.json and mod-settings.dat.
type Game struct {
	DataDir string
	ModsDir string
}

// NewGame creates empty data and mods directories under t.TempDir().
func NewGame(t testing.TB) *Game {
	t.Helper()
	root := t.TempDir()
	g := &Game{
		DataDir: filepath.Join(root, "data"),
		ModsDir: filepath.Join(root, "mods"),
	}
	MustMkdirAll(t, g.DataDir)
	MustMkdirAll(t, g.ModsDir)
	return g
}

// AddData writes a built-in mod (core or base) into the data directory.
func (g *Game) AddData(t testing.TB, name string, files map[string]string) {
	t.Helper()
	MustWriteTree(t, filepath.Join(g.DataDir, name), files)
}

// AddModFolder writes an unpacked mod into the mods directory under dir.
func (g *Game) AddModFolder(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	MustWriteTree(t, filepath.Join(g.ModsDir, dir), files)
}

// AddModArchive writes <stem>.zip into the mods directory with every file
// under a top-level <stem>/ folder, the way the mod portal packs them.
func (g *Game) AddModArchive(t testing.TB, stem string, files map[string]string) string {
	t.Helper()
	entries := make(map[string]string, len(files))
	for name, content := range files {
		entries[stem+"/"+name] = content
	}
	path := filepath.Join(g.ModsDir, stem+".zip")
	MustWriteZip(t, path, entries)
	return path
}

// WriteModList writes mod-list.json with one entry per mod, sorted by name.
func (g *Game) WriteModList(t testing.TB, enabled map[string]bool) {
	t.Helper()

	type entry struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
	names := maps.Keys(enabled)
	slices.Sort(names)
	list := struct {
		Mods []entry `json:"mods"`
	}{Mods: make([]entry, 0, len(names))}
	for _, name := range names {
		list.Mods = append(list.Mods, entry{Name: name, Enabled: enabled[name]})
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode mod list: %v", err)
	}
	MustWriteFile(t, filepath.Join(g.ModsDir, "mod-list.json"), data)
}

// WriteSettings writes mod-settings.dat stamped with game version v.
func (g *Game) WriteSettings(t testing.TB, v string, tree propertytree.Value) {
	t.Helper()
	data := propertytree.EncodeSettings(propertytree.NewSettings(version.MustParse(v), tree))
	MustWriteFile(t, filepath.Join(g.ModsDir, "mod-settings.dat"), data)
}

// StartupSettings builds the tree the game writes for numeric startup
// settings: startup.<name>.value.
func StartupSettings(values map[string]float64) propertytree.Value {
	startup := propertytree.NewDict()
	names := maps.Keys(values)
	slices.Sort(names)
	for _, name := range names {
		setting := propertytree.NewDict()
		setting.Set("value", propertytree.Number(values[name]))
		startup.Set(name, propertytree.Dictionary(setting))
	}
	tree := propertytree.NewDict()
	tree.Set("startup", propertytree.Dictionary(startup))
	return propertytree.Dictionary(tree)
}
