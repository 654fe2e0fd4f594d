// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/factoriotools/modloader/internal/config"
	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/version"
)

const (
	archiveExt = ".zip"
	// settingsFile lives next to mod-list.json and is read by the CLI.
	settingsFile = "mod-settings.dat"
	// gameVersionComponents is the length the game reports its version with.
	gameVersionComponents = 4
)

type (
	// Option configures a Discovery.
	Option func(*Discovery)

	// Discovery scans the data and mods directories named by a Config.
	Discovery struct {
		cfg    *config.Config
		logger *slog.Logger
	}
)

// WithLogger routes discovery's debug output to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Discovery) {
		d.logger = logger
	}
}

// New creates a new Discovery instance.
func New(cfg *config.Config, opts ...Option) *Discovery {
	d := &Discovery{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover loads the mod list, the core and base mods, and every mod in the
// mods directory. On error every archive opened so far is closed; on success
// the caller owns the registry and must Close it.
func (d *Discovery) Discover(ctx context.Context) (*Result, error) {
	res := &Result{}

	list, err := d.loadModList(res)
	if err != nil {
		return nil, err
	}
	reg := modpack.NewRegistry(list)

	if err := d.discoverAll(ctx, reg, res); err != nil {
		_ = reg.Close()
		return nil, err
	}

	res.Registry = reg
	return res, nil
}

func (d *Discovery) discoverAll(ctx context.Context, reg *modpack.Registry, res *Result) error {
	for _, name := range []string{modpack.CoreMod, modpack.BaseMod} {
		if err := d.loadSynthetic(reg, name, res); err != nil {
			return err
		}
	}

	gameVersion, err := d.gameVersion(reg, res)
	if err != nil {
		return err
	}
	res.GameVersion = gameVersion
	stampGameVersion(reg, gameVersion)

	return d.scanModsDir(ctx, reg, res)
}

// stampGameVersion gives core, and base when it has no info.json, the game
// version they ship with.
func stampGameVersion(reg *modpack.Registry, game version.Tuple) {
	if len(game) == 0 {
		return
	}
	for _, name := range []string{modpack.CoreMod, modpack.BaseMod} {
		if m, ok := reg.Installed(name); ok && len(m.Version) == 0 {
			m.Version = slices.Clone(game)
		}
	}
}

// loadModList reads mod-list.json; a missing file enables everything
// installed, with base listed explicitly.
func (d *Discovery) loadModList(res *Result) (*modpack.ModList, error) {
	path := d.cfg.ModListPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeModListMissing,
			Message:  "mod list not found, every installed mod is enabled",
			Path:     path,
		})
		return modpack.DefaultModList(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mod list: %w", err)
	}
	return modpack.ParseModList(data, path)
}

func (d *Discovery) loadSynthetic(reg *modpack.Registry, name string, res *Result) error {
	dir := filepath.Join(d.cfg.DataDir, name)
	if !isDir(dir) {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeSyntheticMissing,
			Message:  fmt.Sprintf("%s not found in the data directory, using an empty placeholder", name),
			Path:     dir,
		})
		return nil
	}

	m, err := modpack.NewSynthetic(name, nil, modpack.DirSource(dir), d.loadOptions(dir))
	if err != nil {
		return err
	}
	reg.Add(m)
	d.logger.Debug("loaded game mod", "mod", name, "version", m.Version, "path", dir)
	return nil
}

// gameVersion prefers the configured version and falls back to base's
// info.json, padded to four components as the game reports it.
func (d *Discovery) gameVersion(reg *modpack.Registry, res *Result) (version.Tuple, error) {
	configured, err := d.cfg.ParsedGameVersion()
	if err != nil {
		return nil, err
	}
	if configured != nil {
		return configured, nil
	}

	if base, ok := reg.Installed(modpack.BaseMod); ok && len(base.Version) > 0 {
		return base.Version.Normalize(gameVersionComponents), nil
	}

	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeGameVersionUnknown,
		Message:  "game version unknown, factorio_version checks are skipped",
		Path:     filepath.Join(d.cfg.DataDir, modpack.BaseMod, modpack.InfoFile),
	})
	return nil, nil
}

func (d *Discovery) scanModsDir(ctx context.Context, reg *modpack.Registry, res *Result) error {
	entries, err := os.ReadDir(d.cfg.ModsDir)
	if errors.Is(err, fs.ErrNotExist) {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeModsDirMissing,
			Message:  "mods directory not found, loading the base game only",
			Path:     d.cfg.ModsDir,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read mods directory: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(d.cfg.ModsDir, entry.Name())
		m, err := d.loadEntry(path, entry, res)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}
		d.register(reg, m, res)
	}
	return nil
}

// loadEntry returns nil, nil for entries that are not mods.
func (d *Discovery) loadEntry(path string, entry fs.DirEntry, res *Result) (*modpack.Mod, error) {
	name := entry.Name()
	switch {
	case entry.IsDir():
		if !fileExists(filepath.Join(path, modpack.InfoFile)) {
			res.Diagnostics = append(res.Diagnostics, unknownEntry(path, "folder without "+modpack.InfoFile))
			return nil, nil
		}
		return modpack.Load(modpack.DirSource(path), d.loadOptions(path))

	case strings.EqualFold(filepath.Ext(name), archiveExt):
		src, err := modpack.OpenZip(path)
		if err != nil {
			return nil, &modpack.InvalidModInfoError{Location: path, Reason: "unreadable archive", Err: err}
		}
		opts := d.loadOptions(path)
		opts.Archive = true
		opts.ArchiveStem = strings.TrimSuffix(name, filepath.Ext(name))
		m, err := modpack.Load(src, opts)
		if err != nil {
			_ = src.Close()
			return nil, err
		}
		return m, nil

	case name == modpack.ModListFile || name == settingsFile:
		return nil, nil

	default:
		res.Diagnostics = append(res.Diagnostics, unknownEntry(path, "not a mod archive or folder"))
		return nil, nil
	}
}

// register adds m, closing whichever copy of a duplicated mod is dropped.
func (d *Discovery) register(reg *modpack.Registry, m *modpack.Mod, res *Result) {
	if m.Synthetic() {
		closeSource(m)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeReservedName,
			Message:  fmt.Sprintf("%s is provided by the data directory and cannot be installed as a mod", m.Name),
			Path:     m.Location,
		})
		return
	}

	added := reg.Add(m)
	switch {
	case added.Ignored:
		closeSource(m)
		kept, _ := reg.Installed(m.Name)
		res.Diagnostics = append(res.Diagnostics, duplicate(m.Name, kept, m))
	case added.Replaced != nil:
		closeSource(added.Replaced)
		res.Diagnostics = append(res.Diagnostics, duplicate(m.Name, m, added.Replaced))
	default:
		d.logger.Debug("discovered mod", "mod", m.Name, "version", m.Version, "path", m.Location)
	}
}

func (d *Discovery) loadOptions(location string) modpack.LoadOptions {
	return modpack.LoadOptions{
		Location:  location,
		ScriptExt: d.cfg.Engine.ScriptExt(),
	}
}

func duplicate(name string, kept, dropped *modpack.Mod) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeDuplicateMod,
		Message:  fmt.Sprintf("%s is installed more than once, using %s and ignoring %s", name, kept.Version, dropped.Version),
		Path:     dropped.Location,
	}
}

func unknownEntry(path, reason string) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Code:     CodeUnknownEntry,
		Message:  "skipping " + filepath.Base(path) + ": " + reason,
		Path:     path,
	}
}

func closeSource(m *modpack.Mod) {
	if c, ok := m.Files.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
