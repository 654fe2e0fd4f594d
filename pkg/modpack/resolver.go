// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"cmp"
	"errors"
	"slices"

	"github.com/factoriotools/modloader/internal/dag"
	"github.com/factoriotools/modloader/pkg/version"
)

type (
	// LoadOrder is the sequence in which mods are executed.
	LoadOrder []string

	// ResolveOptions tune Resolve.
	ResolveOptions struct {
		// GameVersion, when set, rejects mods whose factorio_version is newer.
		GameVersion version.Tuple
		// MaxRecursion caps the depth computation; zero selects
		// dag.DefaultMaxRecursion.
		MaxRecursion int
	}

	// Resolution is the outcome of a successful Resolve.
	Resolution struct {
		Order LoadOrder
		// Depths holds the dependency depth of every enabled mod.
		Depths map[string]int
		// Edges maps each mod to the mods it requires, in declaration order.
		Edges map[string][]string
	}
)

// Resolve validates the dependencies of every enabled mod and computes the
// load order. core and base are exempt from validation and pinned first; the
// rest are sorted by (depth, name). The first validation failure aborts
// resolution.
func Resolve(reg *Registry, opts ResolveOptions) (*Resolution, error) {
	enabled := reg.Enabled()

	g := dag.New()
	for _, m := range enabled {
		g.AddNode(m.Name)
	}

	for _, m := range enabled {
		if m.Synthetic() {
			continue
		}
		if err := checkGameVersion(m, opts.GameVersion); err != nil {
			return nil, err
		}
		for _, dep := range m.Dependencies {
			target, err := checkDependency(reg, m, dep)
			if err != nil {
				return nil, err
			}
			if target != "" {
				g.AddEdge(m.Name, target)
			}
		}
	}

	depths, err := g.Depths(opts.MaxRecursion)
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &DependencyCycleError{Cycle: cycleErr.Cycle}
		}
		return nil, err
	}

	res := &Resolution{
		Order:  orderByDepth(enabled, depths),
		Depths: depths,
		Edges:  make(map[string][]string),
	}
	for _, m := range enabled {
		if req := g.Requires(m.Name); len(req) > 0 {
			res.Edges[m.Name] = req
		}
	}
	return res, nil
}

// checkDependency validates one declaration of m and returns the name to
// add an ordering edge to, or "" when no edge applies.
func checkDependency(reg *Registry, m *Mod, dep Dependency) (string, error) {
	switch dep.Kind {
	case Incompatible:
		if _, installed := reg.Installed(dep.Name); installed {
			return "", &IncompatibleModError{Mod: m.Name, Conflict: dep.Name}
		}
		return "", nil
	case LoadOrderOnly:
		if _, ok := reg.Lookup(dep.Name); !ok {
			return "", &MissingModError{Name: dep.Name, RequiredBy: m.Name}
		}
		return "", nil
	}

	target, ok := reg.Lookup(dep.Name)
	if !ok {
		if dep.Kind.IsOptional() {
			return "", nil
		}
		return "", &MissingModError{Name: dep.Name, RequiredBy: m.Name}
	}
	if dep.Constraint != nil && !dep.Constraint.Satisfied(target.Version) {
		return "", &IncorrectModVersionError{
			Name:       dep.Name,
			RequiredBy: m.Name,
			Required:   dep.Constraint.String(),
			Actual:     target.Version.String(),
		}
	}
	return target.Name, nil
}

func checkGameVersion(m *Mod, game version.Tuple) error {
	if len(game) == 0 || m.Info == nil || m.Info.FactorioVersion == "" {
		return nil
	}
	required, err := version.Parse(m.Info.FactorioVersion)
	if err != nil {
		return &InvalidModInfoError{Location: m.Location, Reason: "invalid factorio_version", Err: err}
	}
	if required.Compare(game) > 0 {
		return &IncompatibleGameVersionError{Mod: m.Name, Required: required.String(), Game: game.String()}
	}
	return nil
}

// orderByDepth pins core and base first and sorts the remaining mods by
// depth, breaking ties by name.
func orderByDepth(mods []*Mod, depths map[string]int) LoadOrder {
	order := LoadOrder{CoreMod, BaseMod}
	rest := make([]string, 0, len(mods))
	for _, m := range mods {
		if !m.Synthetic() {
			rest = append(rest, m.Name)
		}
	}
	slices.SortFunc(rest, func(a, b string) int {
		return cmp.Or(cmp.Compare(depths[a], depths[b]), cmp.Compare(a, b))
	})
	return append(order, rest...)
}

// Index returns the position of name in the order, or -1.
func (o LoadOrder) Index(name string) int {
	return slices.Index(o, name)
}
