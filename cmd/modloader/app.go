// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/internal/issue"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads configuration through its ConfigProvider.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
		flags  globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// globalFlags are the persistent root flags. Each one that is set
	// overrides the matching configuration key.
	globalFlags struct {
		configPath        string
		dataDir           string
		modsDir           string
		gameVersion       string
		engine            string
		logLevel          string
		allowVersionDrift bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadConfig loads configuration and applies the flags the user set on cmd.
// Flag values are validated the same way as file and environment values.
func (a *App) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := a.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}

	changed := cmd.Flags().Changed
	if changed("data-dir") {
		cfg.DataDir = a.flags.dataDir
	}
	if changed("mods-dir") {
		cfg.ModsDir = a.flags.modsDir
	}
	if changed("game-version") {
		cfg.GameVersion = a.flags.gameVersion
	}
	if changed("engine") {
		cfg.Engine = config.EngineKind(a.flags.engine)
	}
	if changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if changed("allow-version-drift") {
		cfg.AllowVersionDrift = a.flags.allowVersionDrift
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, newServiceError(errs[0], issue.ConfigLoadFailedId, "")
	}
	return cfg, nil
}

// newLogger builds the CLI logger from the log configuration and installs it
// as the slog default so library packages log through it too.
func (a *App) newLogger(lc config.LogConfig) (*log.Logger, error) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return nil, newServiceError(fmt.Errorf("invalid log level %q: %w", lc.Level, err), issue.ConfigLoadFailedId, "")
	}

	formatter := log.TextFormatter
	switch lc.Format {
	case config.LogFormatJSON:
		formatter = log.JSONFormatter
	case config.LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	logger := log.NewWithOptions(a.stderr, log.Options{
		Level:     level,
		Formatter: formatter,
	})
	slog.SetDefault(slog.New(logger))
	return logger, nil
}
