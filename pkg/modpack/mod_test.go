// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"archive/zip"
	"bytes"
	"errors"
	"io/fs"
	"slices"
	"strings"
	"testing"

	"github.com/factoriotools/modloader/pkg/cueutil"
	"github.com/factoriotools/modloader/pkg/version"
)

const bobInfo = `{
	"name": "boblibrary",
	"version": "1.1.5",
	"title": "Bob's Functions Library mod",
	"factorio_version": "1.1",
	"dependencies": ["base >= 1.1.0", "? bobplates"],
	"package": {"unknown": true}
}`

func TestLoad_MapSource(t *testing.T) {
	t.Parallel()

	src := MapSource{
		"info.json":            bobInfo,
		"data.lua":             "require('prototypes.items')",
		"data-final-fixes.lua": "-- fixes",
		"prototypes/items.lua": "return {}",
	}
	mod, err := Load(src, LoadOptions{Location: "mods/boblibrary"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if mod.Name != "boblibrary" || !mod.Version.Equal(version.MustParse("1.1.5")) {
		t.Errorf("unexpected identity %s", mod)
	}
	if len(mod.Dependencies) != 2 || mod.Dependencies[1].Kind != Optional {
		t.Errorf("unexpected dependencies %v", mod.Dependencies)
	}
	if _, ok := mod.Script("data-updates"); ok {
		t.Error("data-updates must be absent")
	}
	if got, ok := mod.Script("data"); !ok || string(got) != "require('prototypes.items')" {
		t.Errorf("Script(data) = %q, %v", got, ok)
	}
	if mod.Info.FactorioVersion != "1.1" {
		t.Errorf("FactorioVersion = %q", mod.Info.FactorioVersion)
	}
}

func TestLoad_ScriptExtension(t *testing.T) {
	t.Parallel()

	src := MapSource{
		"info.json": `{"name": "shelly", "version": "0.1.0"}`,
		"data.sh":   "data-extend item thing",
		"data.lua":  "ignored",
	}
	mod, err := Load(src, LoadOptions{ScriptExt: ".sh"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if got, _ := mod.Script("data"); string(got) != "data-extend item thing" {
		t.Errorf("Script(data) = %q", got)
	}
	// Absent "dependencies" defaults to base.
	if len(mod.Dependencies) != 1 || mod.Dependencies[0].Name != BaseMod {
		t.Errorf("expected default dependency on base, got %v", mod.Dependencies)
	}
}

func TestLoad_EmptyDependencyList(t *testing.T) {
	t.Parallel()

	src := MapSource{"info.json": `{"name": "standalone", "version": "1.0.0", "dependencies": []}`}
	mod, err := Load(src, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(mod.Dependencies) != 0 {
		t.Errorf("expected no dependencies, got %v", mod.Dependencies)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     MapSource
		opts    LoadOptions
		wantErr string
	}{
		{
			name:    "missing info",
			src:     MapSource{},
			wantErr: "cannot read info.json",
		},
		{
			name:    "schema violation",
			src:     MapSource{"info.json": `{"name": "x", "version": "one"}`},
			wantErr: "version",
		},
		{
			name:    "bad dependency",
			src:     MapSource{"info.json": `{"name": "x", "version": "1.0.0", "dependencies": ["!!"]}`},
			wantErr: "invalid dependencies",
		},
		{
			name:    "archive version drift",
			src:     MapSource{"info.json": `{"name": "x", "version": "1.0.1"}`},
			opts:    LoadOptions{ArchiveStem: "x_1.0.0"},
			wantErr: "archive version 1.0.0 does not match info.json version 1.0.1",
		},
		{
			name:    "archive name mismatch",
			src:     MapSource{"info.json": `{"name": "x", "version": "1.0.0"}`},
			opts:    LoadOptions{ArchiveStem: "y_1.0.0"},
			wantErr: "does not match mod name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(tt.src, tt.opts)
			if !errors.Is(err, ErrInvalidModInfo) {
				t.Fatalf("expected ErrInvalidModInfo, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewSynthetic(t *testing.T) {
	t.Parallel()

	core, err := NewSynthetic(CoreMod, version.MustParse("1.1.74"), MapSource{"data.lua": "-- core"}, LoadOptions{})
	if err != nil {
		t.Fatalf("NewSynthetic(core) unexpected error: %v", err)
	}
	if core.Info != nil || core.Version.String() != "1.1.74" || !core.Synthetic() {
		t.Errorf("unexpected core %+v", core)
	}

	base, err := NewSynthetic(BaseMod, nil, MapSource{"info.json": `{"name": "base", "version": "1.1.80"}`}, LoadOptions{})
	if err != nil {
		t.Fatalf("NewSynthetic(base) unexpected error: %v", err)
	}
	if base.Version.String() != "1.1.80" {
		t.Errorf("base version = %s, want 1.1.80", base.Version)
	}
}

func TestParseModList(t *testing.T) {
	t.Parallel()

	list, err := ParseModList([]byte(`{"mods": [
		{"name": "base", "enabled": true},
		{"name": "bobplates", "enabled": false},
		{"name": "flib", "enabled": true}
	]}`), ModListFile)
	if err != nil {
		t.Fatalf("ParseModList() unexpected error: %v", err)
	}
	if !list.Enabled("base") || list.Enabled("bobplates") || !list.Enabled("flib") {
		t.Errorf("unexpected enabled flags %+v", list.Mods)
	}
	if !list.Enabled("never-listed") {
		t.Error("unlisted mods must be enabled")
	}

	_, err = ParseModList([]byte(`{"mods": [{"name": "base", "enabled": "yes"}]}`), ModListFile)
	if !errors.Is(err, cueutil.ErrInvalidDocument) || !strings.Contains(err.Error(), "mods[0].enabled") {
		t.Errorf("expected path-qualified schema error, got %v", err)
	}

	if def := DefaultModList(); !def.Enabled(BaseMod) || len(def.Mods) != 1 {
		t.Errorf("unexpected default list %+v", def)
	}
}

func buildZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		if _, err := f.Write([]byte(files[name])); err != nil {
			t.Fatalf("Write(%s): %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader(): %v", err)
	}
	return r
}

func TestZipSource(t *testing.T) {
	t.Parallel()

	r := buildZip(t, map[string]string{
		"boblibrary_1.1.5/info.json":            bobInfo,
		"boblibrary_1.1.5/data.lua":             "-- data",
		"boblibrary_1.1.5/prototypes/items.lua": "return {}",
	})
	src, err := NewZipSource(r)
	if err != nil {
		t.Fatalf("NewZipSource() unexpected error: %v", err)
	}
	defer func() { _ = src.Close() }()

	if src.Root != "boblibrary_1.1.5" {
		t.Errorf("Root = %q", src.Root)
	}
	got, err := src.ReadFile("./prototypes/items.lua")
	if err != nil || string(got) != "return {}" {
		t.Errorf("ReadFile() = %q, %v", got, err)
	}

	_, err = src.ReadFile("missing.lua")
	if !errors.Is(err, ErrFileNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrFileNotFound and fs.ErrNotExist, got %v", err)
	}
	if _, err := src.ReadFile("../escape.lua"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected path escape to be not found, got %v", err)
	}

	mod, err := Load(src, LoadOptions{Archive: true, ArchiveStem: "boblibrary_1.1.5"})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !mod.Archive || len(mod.Scripts) != 1 {
		t.Errorf("unexpected mod %+v", mod)
	}
}

func TestZipSource_MultipleRoots(t *testing.T) {
	t.Parallel()

	r := buildZip(t, map[string]string{
		"a/info.json": "{}",
		"b/info.json": "{}",
	})
	if _, err := NewZipSource(r); err == nil {
		t.Fatal("expected error for archive with two top-level folders")
	}
}

func TestRegistry_AddKeepsNewest(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	older := testMod(t, "flib", "0.9.0")
	newer := testMod(t, "flib", "0.12.4")

	if res := reg.Add(older); res.Replaced != nil || res.Ignored {
		t.Errorf("first Add() = %+v", res)
	}
	if res := reg.Add(newer); res.Replaced != older {
		t.Errorf("expected older mod to be replaced, got %+v", res)
	}
	if res := reg.Add(older); !res.Ignored {
		t.Errorf("expected older mod to be ignored, got %+v", res)
	}
	got, _ := reg.Installed("flib")
	if got != newer {
		t.Errorf("Installed(flib) = %s, want 0.12.4", got)
	}
}

func TestRegistry_EnabledView(t *testing.T) {
	t.Parallel()

	list := &ModList{Mods: []ModListEntry{{Name: "base", Enabled: false}, {Name: "off", Enabled: false}}}
	reg := NewRegistry(list)
	reg.Add(testMod(t, "off", "1.0.0"))
	reg.Add(testMod(t, "on", "1.0.0"))

	if _, ok := reg.Lookup("off"); ok {
		t.Error("Lookup(off) must fail for disabled mod")
	}
	if _, ok := reg.Installed("off"); !ok {
		t.Error("Installed(off) must succeed")
	}
	if !reg.IsEnabled(BaseMod) {
		t.Error("base is always enabled")
	}

	var names []string
	for _, m := range reg.Enabled() {
		names = append(names, m.Name)
	}
	if !slices.Equal(names, []string{"base", "core", "on"}) {
		t.Errorf("Enabled() = %v", names)
	}
	if v := reg.Versions(); v["on"] != "1.0.0" || len(v) != 3 {
		t.Errorf("Versions() = %v", v)
	}
	if reg.Len() != 4 {
		t.Errorf("Len() = %d, want 4", reg.Len())
	}
	if err := reg.Close(); err != nil {
		t.Errorf("Close() unexpected error: %v", err)
	}
}
