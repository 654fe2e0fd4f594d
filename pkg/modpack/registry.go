// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"slices"
	"strings"
)

type (
	// Registry holds every installed mod and which of them are enabled.
	// core and base are always present and always enabled; until real
	// descriptors are added they are empty placeholders.
	Registry struct {
		mods        map[string]*Mod
		placeholder map[string]bool
		list        *ModList
	}

	// AddResult reports what Add did with a mod whose name was already
	// registered.
	AddResult struct {
		// Replaced is the previously registered mod that was dropped, if any.
		Replaced *Mod
		// Ignored is true when the new mod was older and was not registered.
		Ignored bool
	}
)

// NewRegistry creates a registry whose enabled view follows list. A nil list
// is equivalent to DefaultModList.
func NewRegistry(list *ModList) *Registry {
	if list == nil {
		list = DefaultModList()
	}
	r := &Registry{
		mods:        make(map[string]*Mod),
		placeholder: make(map[string]bool),
		list:        list,
	}
	for _, name := range []string{CoreMod, BaseMod} {
		r.mods[name] = &Mod{Name: name, Scripts: map[string][]byte{}, Files: MapSource{}}
		r.placeholder[name] = true
	}
	return r
}

// Add registers a mod. When the name is already installed the newer version
// wins, as the game does with several archives of one mod; placeholders are
// always replaced.
func (r *Registry) Add(m *Mod) AddResult {
	prev, exists := r.mods[m.Name]
	switch {
	case !exists:
	case r.placeholder[m.Name]:
		delete(r.placeholder, m.Name)
		prev = nil
	case m.Version.Less(prev.Version):
		return AddResult{Ignored: true}
	}
	r.mods[m.Name] = m
	return AddResult{Replaced: prev}
}

// Installed returns the mod with the given name regardless of its enabled
// state.
func (r *Registry) Installed(name string) (*Mod, bool) {
	m, ok := r.mods[name]
	return m, ok
}

// Lookup returns the mod only if it is installed and enabled.
func (r *Registry) Lookup(name string) (*Mod, bool) {
	m, ok := r.mods[name]
	if !ok || !r.IsEnabled(name) {
		return nil, false
	}
	return m, true
}

// IsEnabled reports whether name is enabled. core and base always are.
func (r *Registry) IsEnabled(name string) bool {
	if IsSynthetic(name) {
		return true
	}
	return r.list.Enabled(name)
}

// All returns every installed mod sorted by name.
func (r *Registry) All() []*Mod {
	mods := make([]*Mod, 0, len(r.mods))
	for _, m := range r.mods {
		mods = append(mods, m)
	}
	sortByName(mods)
	return mods
}

// Enabled returns the enabled mods sorted by name.
func (r *Registry) Enabled() []*Mod {
	var mods []*Mod
	for name, m := range r.mods {
		if r.IsEnabled(name) {
			mods = append(mods, m)
		}
	}
	sortByName(mods)
	return mods
}

// Versions maps each enabled mod to its version string. Scripts see this as
// the "mods" global.
func (r *Registry) Versions() map[string]string {
	out := make(map[string]string, len(r.mods))
	for _, m := range r.Enabled() {
		out[m.Name] = m.Version.String()
	}
	return out
}

// Len returns the number of installed mods, placeholders included.
func (r *Registry) Len() int {
	return len(r.mods)
}

// Close closes every mod source that holds an open archive.
func (r *Registry) Close() error {
	var firstErr error
	for _, m := range r.All() {
		c, ok := m.Files.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func sortByName(mods []*Mod) {
	slices.SortFunc(mods, func(a, b *Mod) int {
		return strings.Compare(a.Name, b.Name)
	})
}
