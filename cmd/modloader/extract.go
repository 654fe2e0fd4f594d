// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/internal/watch"
	"github.com/factoriotools/modloader/pkg/pipeline"
)

func newExtractCommand(app *App) *cobra.Command {
	var (
		output   string
		format   string
		watching bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the data stage and write the prototype document",
		Long: `Discover and resolve mods, then run every mod's data, data-updates and
data-final-fixes scripts in load order and write the resulting document.

Scripts see the decoded mod-settings.dat as the "settings" global and the
enabled mods with their versions as the "mods" global. Extraction stops at the
first failing script.

With --watch the document is rewritten whenever a script, info.json, mod
archive, mod-list.json or mod-settings.dat changes. Failed runs are reported
and watching continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Output.Path = output
			}
			if format != "" {
				cfg.Output.Format = config.OutputFormat(format)
			}
			if valid, errs := cfg.Output.Format.IsValid(); !valid {
				return errs[0]
			}
			logger, err := app.newLogger(cfg.Log)
			if err != nil {
				return err
			}
			if watching {
				return runWatch(cmd.Context(), app, cfg, logger, debounce)
			}
			return runExtract(cmd.Context(), app, cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: output.path, or stdout)")
	cmd.Flags().StringVar(&format, "format", "", "output format: json or toml (default: output.format)")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "re-extract whenever mod files change")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-extracting in watch mode")
	return cmd
}

func runExtract(ctx context.Context, app *App, cfg *config.Config, logger *log.Logger) error {
	s, err := app.openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	settings, err := s.settings()
	if err != nil {
		return err
	}

	engine, err := s.newEngine()
	if err != nil {
		return classify(err)
	}
	defer func() { _ = engine.Close() }()

	scripts := 0
	orch := pipeline.New(engine, s.discovered.Registry, s.resolution.Order,
		pipeline.WithLogger(logger),
		pipeline.WithScriptExt(cfg.Engine.ScriptExt()),
		pipeline.WithObserver(func(pipeline.Unit) { scripts++ }),
	)
	if err := orch.Prepare(settings); err != nil {
		return classify(err)
	}
	if err := orch.Run(ctx); err != nil {
		return classify(err)
	}

	logger.Info("data stage finished", "mods", len(s.resolution.Order), "scripts", scripts)

	doc, err := engine.Document()
	if err != nil {
		return classify(fmt.Errorf("failed to read document: %w", err))
	}
	if err := writeOutput(app.stdout, cfg.Output.Path, doc, cfg.Output.Format); err != nil {
		return err
	}
	if cfg.Output.Path != "" {
		fmt.Fprintf(app.stderr, "%s Wrote %s\n", SuccessStyle.Render("✓"), cfg.Output.Path)
	}
	return nil
}

// runWatch extracts once, then again after every batch of mod file changes
// until ctx is canceled.
func runWatch(ctx context.Context, app *App, cfg *config.Config, logger *log.Logger, debounce time.Duration) error {
	extract := func(ctx context.Context) {
		if err := runExtract(ctx, app, cfg, logger); err != nil && ctx.Err() == nil {
			renderError(app.stderr, err, false)
		}
	}

	w, err := watch.New(watch.Config{
		Roots:    watchRoots(cfg),
		Debounce: debounce,
		Logger:   slog.New(logger),
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("mod files changed, extracting again", "files", len(changed))
			extract(ctx)
			return nil
		},
	})
	if err != nil {
		return classify(fmt.Errorf("cannot watch mods: %w", err))
	}

	extract(ctx)
	logger.Info("watching for changes", "dirs", len(w.Roots()))
	return w.Run(ctx)
}

// watchRoots lists the directories whose contents feed extraction.
func watchRoots(cfg *config.Config) []string {
	return []string{
		cfg.DataDir,
		cfg.ModsDir,
		filepath.Dir(cfg.ModListPath()),
		filepath.Dir(cfg.ModSettingsPath()),
	}
}
