// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"github.com/factoriotools/modloader/pkg/modpack"
)

const (
	// Initial runs every mod's data script.
	Initial Stage = iota
	// Updates runs data-updates scripts after every mod finished Initial.
	Updates
	// FinalFixes runs data-final-fixes scripts last.
	FinalFixes
)

// Stage is one of the three ordered data lifecycle phases.
type Stage int

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{Initial, Updates, FinalFixes}
}

// Identifier returns the script name of the stage without extension, which
// is also the key of modpack.Mod.Scripts.
func (s Stage) Identifier() string {
	if s < Initial || s > FinalFixes {
		return ""
	}
	return modpack.ScriptStages[s]
}

// ScriptName returns the file name of the stage script for ext, e.g. "data.lua".
func (s Stage) ScriptName(ext string) string {
	return s.Identifier() + ext
}

// String returns the stage label.
func (s Stage) String() string {
	switch s {
	case Initial:
		return "Initial"
	case Updates:
		return "Updates"
	case FinalFixes:
		return "FinalFixes"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}
