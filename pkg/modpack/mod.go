// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/factoriotools/modloader/pkg/version"
)

const (
	// CoreMod is the engine's built-in mod. It is always loaded first.
	CoreMod = "core"
	// BaseMod is the vanilla game content. It is always loaded second.
	BaseMod = "base"

	// DefaultScriptExt is the extension of stage scripts when none is given.
	DefaultScriptExt = ".lua"
)

// ScriptStages lists the stage script identifiers in execution order.
var ScriptStages = []string{"data", "data-updates", "data-final-fixes"}

// archiveNamePattern splits "<name>_<version>" archive stems.
var archiveNamePattern = regexp.MustCompile(`^(.+)_(\d+(?:\.\d+)*)$`)

type (
	// Mod is an installed mod. It is immutable once loaded; the resolver keeps
	// the requirement edges in its own graph.
	Mod struct {
		Name    string
		Version version.Tuple
		// Archive is true when the mod was read from a zip file.
		Archive bool
		// Location is where the mod was found, used in messages and as the
		// mod directory seen by scripts.
		Location string
		// Info is nil for core and base when they are loaded without info.json.
		Info         *Info
		Dependencies []Dependency
		// Scripts maps a stage identifier from ScriptStages to its source.
		Scripts map[string][]byte
		Files   Source
	}

	// LoadOptions control how Load reads a mod.
	LoadOptions struct {
		// Location is recorded on the Mod.
		Location string
		// Archive marks the mod as read from a zip file.
		Archive bool
		// ArchiveStem is the archive file name without ".zip"; when it
		// carries a version, that version must match info.json.
		ArchiveStem string
		// ScriptExt selects the stage script files (default ".lua").
		ScriptExt string
	}
)

// Load reads info.json and the stage scripts from src.
func Load(src Source, opts LoadOptions) (*Mod, error) {
	raw, err := src.ReadFile(InfoFile)
	if err != nil {
		return nil, &InvalidModInfoError{Location: opts.Location, Reason: "cannot read " + InfoFile, Err: err}
	}
	info, err := ParseInfo(raw, joinLocation(opts.Location, InfoFile))
	if err != nil {
		return nil, err
	}

	v, err := version.Parse(info.Version)
	if err != nil {
		return nil, &InvalidModInfoError{Location: opts.Location, Reason: "invalid version", Err: err}
	}
	if err := checkArchiveName(opts.ArchiveStem, info.Name, v); err != nil {
		return nil, &InvalidModInfoError{Location: opts.Location, Reason: err.Error()}
	}

	deps, err := ParseDependencies(info.DeclaredDependencies())
	if err != nil {
		return nil, &InvalidModInfoError{Location: opts.Location, Reason: "invalid dependencies", Err: err}
	}

	scripts, err := readScripts(src, opts.ScriptExt)
	if err != nil {
		return nil, err
	}

	return &Mod{
		Name:         info.Name,
		Version:      v,
		Archive:      opts.Archive,
		Location:     opts.Location,
		Info:         info,
		Dependencies: deps,
		Scripts:      scripts,
		Files:        src,
	}, nil
}

// NewSynthetic builds core or base from a source that may lack info.json. The
// version defaults to v when info.json is absent.
func NewSynthetic(name string, v version.Tuple, src Source, opts LoadOptions) (*Mod, error) {
	mod := &Mod{Name: name, Version: v, Location: opts.Location, Files: src}
	if raw, err := src.ReadFile(InfoFile); err == nil {
		info, err := ParseInfo(raw, joinLocation(opts.Location, InfoFile))
		if err != nil {
			return nil, err
		}
		if parsed, err := version.Parse(info.Version); err == nil {
			mod.Version = parsed
		}
		mod.Info = info
	} else if !errors.Is(err, ErrFileNotFound) {
		return nil, err
	}

	scripts, err := readScripts(src, opts.ScriptExt)
	if err != nil {
		return nil, err
	}
	mod.Scripts = scripts
	return mod, nil
}

// Synthetic reports whether the mod is core or base, which are exempt from
// dependency validation.
func (m *Mod) Synthetic() bool {
	return IsSynthetic(m.Name)
}

// IsSynthetic reports whether name is core or base.
func IsSynthetic(name string) bool {
	return name == CoreMod || name == BaseMod
}

// Script returns the mod's source for a stage identifier.
func (m *Mod) Script(stage string) ([]byte, bool) {
	src, ok := m.Scripts[stage]
	return src, ok
}

func (m *Mod) String() string {
	return m.Name + " " + m.Version.String()
}

func readScripts(src Source, ext string) (map[string][]byte, error) {
	if ext == "" {
		ext = DefaultScriptExt
	}
	scripts := make(map[string][]byte, len(ScriptStages))
	for _, stage := range ScriptStages {
		data, err := src.ReadFile(stage + ext)
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				continue
			}
			return nil, err
		}
		scripts[stage] = data
	}
	return scripts, nil
}

func checkArchiveName(stem, name string, v version.Tuple) error {
	if stem == "" {
		return nil
	}
	m := archiveNamePattern.FindStringSubmatch(stem)
	if m == nil {
		if stem != name {
			return fmt.Errorf("archive %q does not match mod name %q", stem, name)
		}
		return nil
	}
	if m[1] != name {
		return fmt.Errorf("archive %q does not match mod name %q", stem, name)
	}
	external, err := version.Parse(m[2])
	if err != nil {
		return err
	}
	if !external.Equal(v) {
		return fmt.Errorf("archive version %s does not match info.json version %s", external, v)
	}
	return nil
}

func joinLocation(location, file string) string {
	if location == "" {
		return file
	}
	return location + "/" + file
}
