// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/internal/discovery"
	"github.com/factoriotools/modloader/internal/engine/luaengine"
	"github.com/factoriotools/modloader/internal/engine/shellengine"
	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/pipeline"
	"github.com/factoriotools/modloader/pkg/propertytree"
	"github.com/factoriotools/modloader/pkg/version"
)

// session is one discovered and resolved mod set.
type session struct {
	cfg        *config.Config
	logger     *log.Logger
	discovered *discovery.Result
	resolution *modpack.Resolution
}

// openSession discovers installed mods and resolves the load order. The
// caller must close the session.
func (a *App) openSession(ctx context.Context, cfg *config.Config, logger *log.Logger) (*session, error) {
	d := discovery.New(cfg, discovery.WithLogger(slog.New(logger)))
	res, err := d.Discover(ctx)
	if err != nil {
		return nil, classify(err)
	}
	for _, diag := range res.Diagnostics {
		if diag.Severity == discovery.SeverityWarning {
			logger.Warn(diag.Message, "code", diag.Code, "path", diag.Path)
		} else {
			logger.Info(diag.Message, "code", diag.Code, "path", diag.Path)
		}
	}

	resolution, err := modpack.Resolve(res.Registry, modpack.ResolveOptions{GameVersion: res.GameVersion})
	if err != nil {
		_ = res.Registry.Close()
		return nil, classify(err)
	}
	logger.Debug("resolved load order", "mods", len(resolution.Order), "game_version", res.GameVersion.String())

	return &session{cfg: cfg, logger: logger, discovered: res, resolution: resolution}, nil
}

func (s *session) Close() error {
	return s.discovered.Registry.Close()
}

// modFiles exposes the files of enabled mods to the engines.
func (s *session) modFiles(name string) (modpack.Source, bool) {
	m, ok := s.discovered.Registry.Lookup(name)
	if !ok {
		return nil, false
	}
	return m.Files, true
}

// newEngine creates the configured scripting engine.
func (s *session) newEngine() (pipeline.Engine, error) {
	switch s.cfg.Engine {
	case config.EngineShell:
		return shellengine.New(shellengine.WithModFiles(s.modFiles), shellengine.WithLogger(s.logger))
	case config.EngineLua:
		return luaengine.New(luaengine.WithModFiles(s.modFiles), luaengine.WithLogger(s.logger))
	default:
		return nil, &config.InvalidEngineKindError{Value: s.cfg.Engine}
	}
}

// settings decodes mod-settings.dat. A missing file yields None, which the
// orchestrator publishes as an empty dictionary.
func (s *session) settings() (propertytree.Value, error) {
	return readSettings(s.cfg, s.discovered.GameVersion, s.logger)
}

func readSettings(cfg *config.Config, game version.Tuple, logger *log.Logger) (propertytree.Value, error) {
	path := cfg.ModSettingsPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no mod settings file, using defaults", "path", path)
		return propertytree.None(), nil
	}
	if err != nil {
		return propertytree.None(), fmt.Errorf("failed to read mod settings: %w", err)
	}

	var opts []propertytree.SettingsOption
	if cfg.AllowVersionDrift {
		opts = append(opts, propertytree.WithVersionDrift())
	}
	settings, err := propertytree.DecodeSettings(data, game, opts...)
	if err != nil {
		return propertytree.None(), classify(fmt.Errorf("%s: %w", path, err))
	}
	if len(game) > 0 && version.Compare(settings.Version, game) != 0 {
		logger.Warn("mod settings written by another game version", "settings", settings.Version.String(), "game", game.String())
	}
	return settings.Tree, nil
}
