// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/internal/issue"
)

// newConfigCommand creates the `modloader config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modloader configuration",
		Long: `Manage modloader configuration.

Configuration is stored in:
  - Linux: ~/.config/modloader/config.cue
  - macOS: ~/Library/Application Support/modloader/config.cue
  - Windows: %APPDATA%\modloader\config.cue

Every key can be overridden with a MODLOADER_ environment variable, e.g.
MODLOADER_MODS_DIR or MODLOADER_OUTPUT_FORMAT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App) error {
	cfg, err := app.loadConfig(cmd)
	if err != nil {
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	if cfgFile := configFilePath(app); cfgFile != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfgFile)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	gameVersion := cfg.GameVersion
	if gameVersion == "" {
		gameVersion = SubtitleStyle.Render("(from base/info.json)")
	}
	for _, kv := range [][2]string{
		{"data_dir", cfg.DataDir},
		{"mods_dir", cfg.ModsDir},
		{"mod_list", cfg.ModListPath()},
		{"mod_settings", cfg.ModSettingsPath()},
		{"game_version", gameVersion},
		{"allow_version_drift", fmt.Sprintf("%v", cfg.AllowVersionDrift)},
		{"engine", cfg.Engine.String()},
	} {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(kv[0]), valueStyle.Render(kv[1]))
	}

	outPath := cfg.Output.Path
	if outPath == "" {
		outPath = SubtitleStyle.Render("(stdout)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("output"))
	fmt.Fprintf(w, "  path: %s\n", valueStyle.Render(outPath))
	fmt.Fprintf(w, "  format: %s\n", valueStyle.Render(cfg.Output.Format.String()))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("log"))
	fmt.Fprintf(w, "  level: %s\n", valueStyle.Render(cfg.Log.Level))
	fmt.Fprintf(w, "  format: %s\n", valueStyle.Render(cfg.Log.Format.String()))

	return nil
}

// configFilePath returns the config file in use, or "" when only defaults
// and environment apply.
func configFilePath(app *App) string {
	if app.flags.configPath != "" {
		return app.flags.configPath
	}
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt)
	if fileExistsCheck(path) {
		return path
	}
	return ""
}

func initConfig(app *App) error {
	path, err := config.CreateDefaultConfig()
	if err != nil {
		return newServiceError(fmt.Errorf("failed to create config: %w", err), issue.ConfigLoadFailedId, "")
	}
	fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
