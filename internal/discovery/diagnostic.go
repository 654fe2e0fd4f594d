// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/version"
)

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityInfo indicates a note about a default that was applied.
	SeverityInfo Severity = "info"

	// CodeDuplicateMod is reported when several versions of a mod are installed.
	CodeDuplicateMod = "duplicate_mod"
	// CodeModListMissing is reported when mod-list.json does not exist.
	CodeModListMissing = "mod_list_missing"
	// CodeUnknownEntry is reported for files in the mods directory that are
	// neither archives nor mod folders.
	CodeUnknownEntry = "unknown_entry"
	// CodeGameVersionUnknown is reported when base/info.json is absent and no
	// game version was configured.
	CodeGameVersionUnknown = "game_version_unknown"
	// CodeModsDirMissing is reported when the mods directory does not exist.
	CodeModsDirMissing = "mods_dir_missing"
	// CodeSyntheticMissing is reported when core or base is absent from the
	// data directory.
	CodeSyntheticMissing = "synthetic_missing"
	// CodeReservedName is reported for a user mod named core or base.
	CodeReservedName = "reserved_name"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic represents a structured discovery diagnostic that is returned
	// to callers (rather than written to stderr) for consistent rendering policy.
	Diagnostic struct {
		// Severity is the diagnostic level.
		Severity Severity
		// Code is a machine-readable identifier (e.g., "duplicate_mod").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}

	// Result bundles the loaded registry with diagnostics produced while
	// scanning.
	Result struct {
		Registry *modpack.Registry
		// GameVersion is the configured version, or base's version padded to
		// four components.
		GameVersion version.Tuple
		Diagnostics []Diagnostic
	}
)

// String renders the diagnostic on one line.
func (d Diagnostic) String() string {
	if d.Path == "" {
		return string(d.Severity) + ": " + d.Message
	}
	return string(d.Severity) + ": " + d.Message + " (" + d.Path + ")"
}

// Warnings returns the diagnostics with SeverityWarning.
func (r *Result) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, diag := range r.Diagnostics {
		if diag.Severity == SeverityWarning {
			out = append(out, diag)
		}
	}
	return out
}
