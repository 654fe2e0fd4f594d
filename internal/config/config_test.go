// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/factoriotools/modloader/internal/issue"
	"github.com/factoriotools/modloader/pkg/cueutil"
	"github.com/factoriotools/modloader/pkg/version"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Engine != EngineLua {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EngineLua)
	}
	if cfg.Output.Format != OutputFormatJSON {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, OutputFormatJSON)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != LogFormatText {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.AllowVersionDrift {
		t.Error("AllowVersionDrift should default to false")
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("default config should be valid: %v", errs)
	}
}

func TestConfig_DerivedPaths(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ModsDir = filepath.Join("games", "mods")
	if got, want := cfg.ModListPath(), filepath.Join("games", "mods", "mod-list.json"); got != want {
		t.Errorf("ModListPath() = %q, want %q", got, want)
	}
	if got, want := cfg.ModSettingsPath(), filepath.Join("games", "mods", "mod-settings.dat"); got != want {
		t.Errorf("ModSettingsPath() = %q, want %q", got, want)
	}

	cfg.ModList = "/elsewhere/list.json"
	cfg.ModSettings = "/elsewhere/settings.dat"
	if cfg.ModListPath() != "/elsewhere/list.json" || cfg.ModSettingsPath() != "/elsewhere/settings.dat" {
		t.Error("explicit paths must win over mods_dir")
	}
}

func TestConfig_ParsedGameVersion(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if v, err := cfg.ParsedGameVersion(); err != nil || v != nil {
		t.Errorf("unset game version = %v, %v", v, err)
	}

	cfg.GameVersion = "1.1.110"
	v, err := cfg.ParsedGameVersion()
	if err != nil || !v.Equal(version.MustParse("1.1.110")) {
		t.Errorf("ParsedGameVersion() = %v, %v", v, err)
	}

	cfg.GameVersion = "latest"
	if _, err := cfg.ParsedGameVersion(); !errors.Is(err, ErrInvalidGameVersion) || !errors.Is(err, version.ErrMalformedVersion) {
		t.Errorf("expected ErrInvalidGameVersion wrapping ErrMalformedVersion, got %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	SetConfigDirOverride("/tmp/override")
	dir, err := ConfigDir()
	if err != nil || dir != "/tmp/override" {
		t.Errorf("ConfigDir() with override = %q, %v", dir, err)
	}

	Reset()
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() unexpected error: %v", err)
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("ConfigDir() = %q, want a %q directory", dir, AppName)
	}
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()

	res, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
	if *res.Config != *DefaultConfig() {
		t.Errorf("Load() = %+v, want defaults", res.Config)
	}
}

func TestLoad_ConfigDirFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
data_dir: "/opt/factorio/data"
engine: "shell"
output: format: "toml"
`)

	res, err := LoadWithPath(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if res.Path != path {
		t.Errorf("Path = %q, want %q", res.Path, path)
	}
	cfg := res.Config
	if cfg.DataDir != "/opt/factorio/data" || cfg.Engine != EngineShell || cfg.Output.Format != OutputFormatTOML {
		t.Errorf("unexpected config %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.ModsDir != DefaultConfig().ModsDir || cfg.Log.Level != "info" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_CustomPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	_, err := NewProvider().Load(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "missing.cue"),
	})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *issue.ActionableError, got %T: %v", err, err)
	}
	if ae.Operation != "load configuration" || len(ae.Suggestions) == 0 {
		t.Errorf("unexpected actionable error %+v", ae)
	}
}

func TestLoad_CustomPath_InvalidCUE_ReturnsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "syntax", content: "engine: ", want: "config.cue"},
		{name: "enum", content: `engine: "python"`, want: "engine"},
		{name: "closed", content: `unknown_key: true`, want: "unknown_key"},
		{name: "nested", content: `log: format: "xml"`, want: "log.format"},
		{name: "version", content: `game_version: "1.x"`, want: "game_version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			if !errors.Is(err, cueutil.ErrInvalidDocument) {
				t.Errorf("expected cueutil.ErrInvalidDocument in %v", err)
			}
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("MODLOADER_OUTPUT_FORMAT", "toml")
	t.Setenv("MODLOADER_ALLOW_VERSION_DRIFT", "true")
	t.Setenv("MODLOADER_MODS_DIR", "/srv/mods")

	dir := t.TempDir()
	writeConfig(t, dir, `mods_dir: "/from/file"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Output.Format != OutputFormatTOML {
		t.Errorf("Output.Format = %q, want toml", cfg.Output.Format)
	}
	if !cfg.AllowVersionDrift {
		t.Error("AllowVersionDrift should be overridden to true")
	}
	if cfg.ModsDir != "/srv/mods" {
		t.Errorf("ModsDir = %q, environment should win over the file", cfg.ModsDir)
	}
}

func TestLoad_EnvironmentValidated(t *testing.T) {
	t.Setenv("MODLOADER_ENGINE", "python")

	_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidEngineKind) {
		t.Fatalf("expected ErrInvalidEngineKind, got %v", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.GameVersion = "1.1.110"
	cfg.ModList = "/etc/mod-list.json"
	cfg.Output.Path = "out/data.json"
	cfg.Log.Format = LogFormatJSON

	dir := t.TempDir()
	writeConfig(t, dir, GenerateCUE(cfg))

	loaded, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	dir := filepath.Join(t.TempDir(), "nested")
	SetConfigDirOverride(dir)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}

	// A second call leaves an edited file alone.
	if err := os.WriteFile(path, []byte(`engine: "shell"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `engine: "shell"` {
		t.Errorf("existing config was overwritten: %q", data)
	}
}
