// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"

	"github.com/factoriotools/modloader/pkg/modpack"
	"github.com/factoriotools/modloader/pkg/propertytree"
)

type (
	// Identity is what a script sees of the mod it belongs to.
	Identity struct {
		ModName string
		// ModDir is where the mod was found.
		ModDir string
		// CurrentFile is the logical path of the running script.
		CurrentFile string
		// Files resolves the mod's own files for module loading.
		Files modpack.Source
	}

	// Engine is a single-owner scripting session. Implementations are not
	// safe for concurrent use.
	Engine interface {
		// SetGlobal binds a global variable visible to every later script.
		SetGlobal(name string, value propertytree.Value) error
		// Bind makes id the current mod.
		Bind(id Identity) error
		// Execute runs source under chunkName.
		Execute(ctx context.Context, chunkName string, source []byte) error
		// InvalidateModuleCache forgets every module loaded so far so a module
		// with the same name in another mod is loaded afresh.
		InvalidateModuleCache() error
		// ResetTransientState clears per-mod bookkeeping.
		ResetTransientState() error
		// Document returns the data the scripts have produced.
		Document() (propertytree.Value, error)
		// Close releases the session.
		Close() error
	}

	// ModSet is the view of installed mods the orchestrator needs.
	// *modpack.Registry implements it.
	ModSet interface {
		Lookup(name string) (*modpack.Mod, bool)
		Versions() map[string]string
	}
)
