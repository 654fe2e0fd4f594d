// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/factoriotools/modloader/internal/issue"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

func TestSettings_JSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.writeSettings(t, "1.1.110", map[string]float64{"gear-size": 50})

	stdout, stderr, err := env.run(t, "settings")
	if err != nil {
		t.Fatalf("settings failed: %v\n%s", err, stderr)
	}
	startup := decodeJSON(t, stdout)["startup"].(map[string]any)
	if got := startup["gear-size"].(map[string]any)["value"]; got != float64(50) {
		t.Errorf("gear-size = %v, want 50", got)
	}
}

func TestSettings_TOML(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.writeSettings(t, "1.1.110", map[string]float64{"gear-size": 50})

	stdout, stderr, err := env.run(t, "settings", "--format", "toml")
	if err != nil {
		t.Fatalf("settings failed: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "[startup.gear-size]") {
		t.Errorf("TOML output missing setting table:\n%s", stdout)
	}
}

func TestSettings_ExplicitFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "other.dat")
	tree := propertytree.NewDict()
	tree.Set("startup", propertytree.Dictionary(nil))
	data := propertytree.EncodeSettings(propertytree.NewSettings(nil, propertytree.Dictionary(tree)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := env.run(t, "settings", "--file", path)
	if err != nil {
		t.Fatalf("settings failed: %v\n%s", err, stderr)
	}
	if strings.TrimSpace(stdout) != "{\n  \"startup\": {}\n}" {
		t.Errorf("unexpected output:\n%s", stdout)
	}
}

func TestSettings_Errors(t *testing.T) {
	t.Parallel()

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if err := os.WriteFile(filepath.Join(env.ModsDir, "mod-settings.dat"), []byte{1, 0, 1}, 0o644); err != nil {
			t.Fatal(err)
		}
		_, _, err := env.run(t, "settings")
		if !errors.Is(err, propertytree.ErrTruncatedInput) {
			t.Fatalf("err = %v, want ErrTruncatedInput", err)
		}
		if got := serviceIssue(t, err); got != issue.SettingsDecodeFailedId {
			t.Errorf("issue = %d, want %d", got, issue.SettingsDecodeFailedId)
		}
	})

	t.Run("version pinned", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		env.writeSettings(t, "1.1.100", nil)
		_, _, err := env.run(t, "settings", "--game-version", "1.1.110")
		if !errors.Is(err, propertytree.ErrVersionMismatch) {
			t.Fatalf("err = %v, want ErrVersionMismatch", err)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.run(t, "settings", "--format", "yaml"); err == nil {
			t.Fatal("settings accepted an unknown format")
		}
	})
}

func TestSettings_MissingFileIsNull(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	stdout, _, err := env.run(t, "settings")
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	if strings.TrimSpace(stdout) != "null" {
		t.Errorf("output = %q, want null", stdout)
	}
}
