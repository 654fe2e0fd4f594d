// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modloader",
		Short: "Load Factorio mods and extract their prototype data",
		Long: TitleStyle.Render("modloader") + SubtitleStyle.Render(" - Load Factorio mods and extract their prototype data") + `

modloader discovers the game's core and base data plus the mods in your mods
directory, resolves their dependencies into a load order and runs every mod's
data stage scripts to build the prototype document.

` + SubtitleStyle.Render("Examples:") + `
  modloader resolve                        Show the load order
  modloader settings                       Dump mod-settings.dat
  modloader extract -o data-raw.json       Extract the prototype document
  modloader extract --engine shell         Run .sh stage scripts instead of .lua
  modloader config show                    Show current configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/modloader/config.cue)")
	pf.StringVar(&app.flags.dataDir, "data-dir", "", "game data directory holding core/ and base/")
	pf.StringVar(&app.flags.modsDir, "mods-dir", "", "directory holding mod archives and folders")
	pf.StringVar(&app.flags.gameVersion, "game-version", "", "game version (default: read from base/info.json)")
	pf.StringVar(&app.flags.engine, "engine", "", "scripting engine: lua or shell")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&app.flags.allowVersionDrift, "allow-version-drift", false, "accept mod-settings.dat written by another game version")

	rootCmd.AddCommand(newResolveCommand(app))
	rootCmd.AddCommand(newSettingsCommand(app))
	rootCmd.AddCommand(newExtractCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// fang renders its own error output; ours carries the issue guide.
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.flags.logLevel == "debug")
		}),
	)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
