// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	_ "embed"

	"github.com/factoriotools/modloader/pkg/cueutil"
)

const (
	// InfoFile is the metadata file at the root of every mod.
	InfoFile = "info.json"

	// ModListFile is the file recording which installed mods are enabled.
	ModListFile = "mod-list.json"
)

var (
	//go:embed info_schema.cue
	infoSchemaSource string

	infoSchema    = cueutil.NewSchema(infoSchemaSource, "#ModInfo")
	modListSchema = cueutil.NewSchema(infoSchemaSource, "#ModList")

	// defaultDependencies applies when info.json omits "dependencies".
	defaultDependencies = []string{BaseMod}
)

type (
	// Info is the decoded content of a mod's info.json.
	Info struct {
		Name            string `json:"name"`
		Version         string `json:"version"`
		Title           string `json:"title,omitempty"`
		Author          string `json:"author,omitempty"`
		Description     string `json:"description,omitempty"`
		FactorioVersion string `json:"factorio_version,omitempty"`
		// Dependencies is nil when the field is absent, which is not the
		// same as an empty list: see DeclaredDependencies.
		Dependencies []string `json:"dependencies,omitempty"`
	}

	// ModList is the decoded content of mod-list.json.
	ModList struct {
		Mods []ModListEntry `json:"mods"`
	}

	// ModListEntry is one mod's enabled flag.
	ModListEntry struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}
)

// ParseInfo validates and decodes info.json content. filename is used only in
// error messages.
func ParseInfo(data []byte, filename string) (*Info, error) {
	info, err := cueutil.Decode[Info](infoSchema, data, filename)
	if err != nil {
		return nil, &InvalidModInfoError{Location: filename, Reason: "invalid info.json", Err: err}
	}
	return info, nil
}

// DeclaredDependencies returns the raw dependency declarations, defaulting to
// a dependency on base when the field is absent.
func (i *Info) DeclaredDependencies() []string {
	if i.Dependencies == nil {
		return defaultDependencies
	}
	return i.Dependencies
}

// ParseModList validates and decodes mod-list.json content.
func ParseModList(data []byte, filename string) (*ModList, error) {
	return cueutil.Decode[ModList](modListSchema, data, filename)
}

// DefaultModList is used when no mod-list.json exists: only base is listed.
func DefaultModList() *ModList {
	return &ModList{Mods: []ModListEntry{{Name: BaseMod, Enabled: true}}}
}

// Enabled reports whether name is enabled. Mods that are not listed count as
// enabled, matching the game's treatment of newly installed mods. A nil list
// enables everything.
func (l *ModList) Enabled(name string) bool {
	if l == nil {
		return true
	}
	enabled := true
	for _, m := range l.Mods {
		if m.Name == name {
			// Later entries win, like a JSON object with duplicate keys.
			enabled = m.Enabled
		}
	}
	return enabled
}
