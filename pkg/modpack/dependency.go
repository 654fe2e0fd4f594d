// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"regexp"
	"strings"

	"github.com/factoriotools/modloader/pkg/version"
)

const (
	// Required dependencies must be enabled and satisfy their constraint.
	Required DependencyKind = iota
	// Optional dependencies are checked like Required ones only when enabled.
	Optional
	// HiddenOptional behaves like Optional; the game only hides it in the UI.
	HiddenOptional
	// Incompatible dependencies must not be installed at all.
	Incompatible
	// LoadOrderOnly dependencies must be enabled but impose no ordering.
	LoadOrderOnly
)

const (
	OpEqual        Operator = "=="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
)

// dependencyPattern matches a whitespace-stripped declaration: an optional
// prefix, the mod name and an optional operator/version pair. The version
// may not start with an operator character, so "b>=" never reads as "b>" "=".
var dependencyPattern = regexp.MustCompile(`^(!|\?|\(\?\)|~)?([\w-]+)(?:(>=|<=|==|=|>|<)([^<>=].*))?$`)

type (
	// DependencyKind distinguishes the prefixes of a dependency declaration.
	DependencyKind int

	// Operator is a version comparison operator.
	Operator string

	// Constraint restricts the acceptable versions of a dependency.
	Constraint struct {
		Op      Operator
		Version version.Tuple
	}

	// Dependency is one parsed entry of info.json's "dependencies" list.
	Dependency struct {
		Kind DependencyKind
		Name string
		// Constraint is nil when the declaration carries no version.
		Constraint *Constraint
		// Raw is the declaration as written in info.json.
		Raw string
	}
)

// ParseDependency parses a declaration such as "? bobplates >= 1.1.0".
// All whitespace is ignored and "=" is accepted as a synonym of "==".
func ParseDependency(raw string) (Dependency, error) {
	compact := strings.Join(strings.Fields(raw), "")
	m := dependencyPattern.FindStringSubmatch(compact)
	if m == nil {
		return Dependency{}, &MalformedDependencyError{Raw: raw}
	}

	dep := Dependency{Kind: kindFromPrefix(m[1]), Name: m[2], Raw: raw}
	if m[3] != "" {
		v, err := version.Parse(m[4])
		if err != nil {
			return Dependency{}, &MalformedDependencyError{Raw: raw, Err: err}
		}
		op := Operator(m[3])
		if op == "=" {
			op = OpEqual
		}
		dep.Constraint = &Constraint{Op: op, Version: v}
	}
	return dep, nil
}

// ParseDependencies parses every declaration in order, stopping at the first
// malformed one.
func ParseDependencies(raw []string) ([]Dependency, error) {
	deps := make([]Dependency, 0, len(raw))
	for _, r := range raw {
		dep, err := ParseDependency(r)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func kindFromPrefix(prefix string) DependencyKind {
	switch prefix {
	case "!":
		return Incompatible
	case "?":
		return Optional
	case "(?)":
		return HiddenOptional
	case "~":
		return LoadOrderOnly
	default:
		return Required
	}
}

// Prefix returns the declaration prefix for the kind ("" for Required).
func (k DependencyKind) Prefix() string {
	switch k {
	case Optional:
		return "?"
	case HiddenOptional:
		return "(?)"
	case Incompatible:
		return "!"
	case LoadOrderOnly:
		return "~"
	default:
		return ""
	}
}

func (k DependencyKind) String() string {
	switch k {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case HiddenOptional:
		return "hidden-optional"
	case Incompatible:
		return "incompatible"
	case LoadOrderOnly:
		return "load-order-only"
	default:
		return "unknown"
	}
}

// IsOptional reports whether an absent target is acceptable.
func (k DependencyKind) IsOptional() bool {
	return k == Optional || k == HiddenOptional
}

// Satisfied reports whether v meets the constraint.
func (c Constraint) Satisfied(v version.Tuple) bool {
	cmp := version.Compare(v, c.Version)
	switch c.Op {
	case OpEqual:
		return cmp == 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	default:
		return false
	}
}

func (c Constraint) String() string {
	return string(c.Op) + c.Version.String()
}

// String renders the canonical form, e.g. "? bobplates >= 1.1.0".
func (d Dependency) String() string {
	var sb strings.Builder
	if p := d.Kind.Prefix(); p != "" {
		sb.WriteString(p)
		sb.WriteByte(' ')
	}
	sb.WriteString(d.Name)
	if d.Constraint != nil {
		sb.WriteByte(' ')
		sb.WriteString(string(d.Constraint.Op))
		sb.WriteByte(' ')
		sb.WriteString(d.Constraint.Version.String())
	}
	return sb.String()
}
