// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

var (
	// ErrMalformedDependencyString is returned when a dependency declaration
	// cannot be parsed.
	ErrMalformedDependencyString = errors.New("malformed dependency string")

	// ErrIncompatibleMod is returned when a mod declares an incompatibility
	// with another installed mod.
	ErrIncompatibleMod = errors.New("incompatible mod")

	// ErrMissingMod is returned when a required dependency is not enabled.
	ErrMissingMod = errors.New("missing mod")

	// ErrIncorrectModVersion is returned when a dependency is enabled at a
	// version that does not satisfy the declared constraint.
	ErrIncorrectModVersion = errors.New("incorrect mod version")

	// ErrDependencyCycle is returned when the requirement graph loops back on
	// itself or exceeds the recursion cap.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrIncompatibleGameVersion is returned when a mod targets a newer game
	// version than the one being loaded.
	ErrIncompatibleGameVersion = errors.New("incompatible game version")

	// ErrInvalidModInfo is returned when info.json is missing required data or
	// disagrees with the archive it was read from.
	ErrInvalidModInfo = errors.New("invalid mod info")

	// ErrFileNotFound is returned by Source implementations for missing files.
	// Errors wrapping it also match fs.ErrNotExist.
	ErrFileNotFound = errors.New("mod file not found")
)

type (
	// MalformedDependencyError describes a dependency declaration that does not
	// follow the "[prefix] name [op version]" grammar.
	MalformedDependencyError struct {
		Raw string
		// Err is the underlying version error, if the name parsed but the
		// version did not.
		Err error
	}

	// IncompatibleModError reports that Mod declares "!Conflict" while
	// Conflict is installed.
	IncompatibleModError struct {
		Mod      string
		Conflict string
	}

	// MissingModError reports that RequiredBy depends on Name, which is not
	// installed or not enabled.
	MissingModError struct {
		Name       string
		RequiredBy string
	}

	// IncorrectModVersionError reports a version constraint violation.
	IncorrectModVersionError struct {
		Name       string
		RequiredBy string
		// Required is the rendered constraint, e.g. ">=2.0".
		Required string
		// Actual is the installed version of Name.
		Actual string
	}

	// DependencyCycleError lists the mods on a requirement path that loops.
	DependencyCycleError struct {
		Cycle []string
	}

	// IncompatibleGameVersionError reports a mod whose factorio_version is
	// newer than the game.
	IncompatibleGameVersionError struct {
		Mod      string
		Required string
		Game     string
	}

	// InvalidModInfoError wraps a failure to read or validate info.json.
	InvalidModInfoError struct {
		Location string
		Reason   string
		Err      error
	}

	// FileNotFoundError reports a path missing from a mod source.
	FileNotFoundError struct {
		Path string
	}
)

func (e *MalformedDependencyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed dependency string %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("malformed dependency string %q", e.Raw)
}

// Unwrap returns ErrMalformedDependencyString and the version error, if any.
func (e *MalformedDependencyError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedDependencyString, e.Err}
	}
	return []error{ErrMalformedDependencyString}
}

func (e *IncompatibleModError) Error() string {
	return fmt.Sprintf("mod %q is incompatible with installed mod %q", e.Mod, e.Conflict)
}

// Unwrap returns ErrIncompatibleMod so callers can use errors.Is for programmatic detection.
func (e *IncompatibleModError) Unwrap() error { return ErrIncompatibleMod }

func (e *MissingModError) Error() string {
	if e.RequiredBy == "" {
		return fmt.Sprintf("missing mod %q", e.Name)
	}
	return fmt.Sprintf("missing mod %q (required by %q)", e.Name, e.RequiredBy)
}

// Unwrap returns ErrMissingMod so callers can use errors.Is for programmatic detection.
func (e *MissingModError) Unwrap() error { return ErrMissingMod }

func (e *IncorrectModVersionError) Error() string {
	return fmt.Sprintf("mod %q requires %s %s, found %s", e.RequiredBy, e.Name, e.Required, e.Actual)
}

// Unwrap returns ErrIncorrectModVersion so callers can use errors.Is for programmatic detection.
func (e *IncorrectModVersionError) Unwrap() error { return ErrIncorrectModVersion }

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrDependencyCycle so callers can use errors.Is for programmatic detection.
func (e *DependencyCycleError) Unwrap() error { return ErrDependencyCycle }

func (e *IncompatibleGameVersionError) Error() string {
	return fmt.Sprintf("mod %q targets game version %s, newer than %s", e.Mod, e.Required, e.Game)
}

// Unwrap returns ErrIncompatibleGameVersion so callers can use errors.Is for programmatic detection.
func (e *IncompatibleGameVersionError) Unwrap() error { return ErrIncompatibleGameVersion }

func (e *InvalidModInfoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Location, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Reason)
}

// Unwrap returns ErrInvalidModInfo and the underlying cause, if any.
func (e *InvalidModInfoError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidModInfo, e.Err}
	}
	return []error{ErrInvalidModInfo}
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("mod file not found: %s", e.Path)
}

// Unwrap returns both ErrFileNotFound and fs.ErrNotExist.
func (e *FileNotFoundError) Unwrap() []error { return []error{ErrFileNotFound, fs.ErrNotExist} }
